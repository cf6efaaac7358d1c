package alert

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/youssefsn2/PFE/internal/alert/mocks"
	"github.com/youssefsn2/PFE/internal/domain"
)

func prefsFor(userID string) *domain.Preferences {
	p := domain.DefaultPreferences(userID)
	return &p
}

func TestEngine_Evaluate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prefs := mocks.NewMockPreferencesReader(ctrl)
	engine := NewEngine(prefs)
	ctx := context.Background()

	t.Run("should raise one alert per metric strictly above threshold", func(t *testing.T) {
		req := require.New(t)
		prefs.EXPECT().GetPreferences(gomock.Any(), "u1").Return(prefsFor("u1"), nil)

		// Given AQI 101 > 100, PM2.5 equal to its threshold, CO above
		reading := domain.Reading{AQI: 101, PM25: 25, PM10: 10, NO2: 1, O3: 1, CO: 11}

		// When
		events, err := engine.Evaluate(ctx, "u1", reading)

		// Then
		req.NoError(err)
		req.Len(events, 2)
		req.Equal(domain.AlertPollution, events[0].Type)
		req.Equal(101.0, events[0].Value)
		req.Contains(events[0].Message, "101")
		req.Equal(domain.AlertCO, events[1].Type)
	})

	t.Run("should raise every metric type", func(t *testing.T) {
		req := require.New(t)
		prefs.EXPECT().GetPreferences(gomock.Any(), "u1").Return(prefsFor("u1"), nil)

		events, err := engine.Evaluate(ctx, "u1", domain.Reading{AQI: 500, PM10: 500, PM25: 500, NO2: 500, O3: 500, CO: 500})
		req.NoError(err)
		req.Len(events, 6)
		req.Equal([]domain.AlertType{
			domain.AlertPollution, domain.AlertPM10, domain.AlertPM25,
			domain.AlertNO2, domain.AlertO3, domain.AlertCO,
		}, []domain.AlertType{events[0].Type, events[1].Type, events[2].Type, events[3].Type, events[4].Type, events[5].Type})
	})

	t.Run("should stay silent when alerting is disabled", func(t *testing.T) {
		req := require.New(t)
		p := prefsFor("u2")
		p.AlertsEnabled = false
		prefs.EXPECT().GetPreferences(gomock.Any(), "u2").Return(p, nil)

		events, err := engine.Evaluate(ctx, "u2", domain.Reading{AQI: 999})
		req.NoError(err)
		req.Empty(events)
	})

	t.Run("should stay silent without preferences", func(t *testing.T) {
		req := require.New(t)
		prefs.EXPECT().GetPreferences(gomock.Any(), "u3").Return(nil, nil)

		events, err := engine.Evaluate(ctx, "u3", domain.Reading{AQI: 999})
		req.NoError(err)
		req.Empty(events)
	})

	t.Run("should reject non-finite readings without loading preferences", func(t *testing.T) {
		prefs.EXPECT().GetPreferences(gomock.Any(), gomock.Any()).Times(0)

		_, err := engine.Evaluate(ctx, "u1", domain.Reading{AQI: math.NaN()})
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("should surface preference lookup failures", func(t *testing.T) {
		prefs.EXPECT().GetPreferences(gomock.Any(), "u1").Return(nil, errors.New("db down"))

		_, err := engine.Evaluate(ctx, "u1", domain.Reading{AQI: 1})
		require.Error(t, err)
	})
}

func TestEngine_SensorAndSystem(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	prefs := mocks.NewMockPreferencesReader(ctrl)
	engine := NewEngine(prefs)
	ctx := context.Background()

	prefs.EXPECT().GetPreferences(gomock.Any(), "u1").Return(prefsFor("u1"), nil).Times(2)

	events, err := engine.SensorDisconnected(ctx, "u1", "capteurs/qualite_air", 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.AlertSensor, events[0].Type)

	events, err = engine.SystemError(ctx, "u1", "database unreachable")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.AlertSystem, events[0].Type)
}
