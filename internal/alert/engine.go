// Package alert evaluates sensor readings against user thresholds and delivers alerts.
package alert

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/youssefsn2/PFE/internal/domain"
)

// Engine evaluates readings. It has no side effects beyond reading preferences.
type Engine struct {
	prefs PreferencesReader
	now   func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(prefs PreferencesReader) *Engine {
	return &Engine{prefs: prefs, now: time.Now}
}

type metric struct {
	typ       domain.AlertType
	label     string
	value     float64
	threshold float64
}

func metrics(r domain.Reading, p *domain.Preferences) []metric {
	return []metric{
		{domain.AlertPollution, "AQI", r.AQI, p.AQI},
		{domain.AlertPM10, "PM10", r.PM10, p.PM10},
		{domain.AlertPM25, "PM2.5", r.PM25, p.PM25},
		{domain.AlertNO2, "NO2", r.NO2, p.NO2},
		{domain.AlertO3, "O3", r.O3, p.O3},
		{domain.AlertCO, "CO", r.CO, p.CO},
	}
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// enabled returns the owner's preferences when alerting is on, nil otherwise.
func (e *Engine) enabled(ctx context.Context, owner string) (*domain.Preferences, error) {
	p, err := e.prefs.GetPreferences(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if p == nil || !p.AlertsEnabled {
		return nil, nil
	}
	return p, nil
}

// Evaluate returns one event per metric strictly above the owner's threshold.
// No preferences or alerting disabled yields no events.
func (e *Engine) Evaluate(ctx context.Context, owner string, r domain.Reading) ([]domain.AlertEvent, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: reading has non-finite values", domain.ErrValidation)
	}
	p, err := e.enabled(ctx, owner)
	if err != nil || p == nil {
		return nil, err
	}

	at := r.At
	if at.IsZero() {
		at = e.now()
	}

	var events []domain.AlertEvent
	for _, m := range metrics(r, p) {
		if m.value > m.threshold {
			events = append(events, domain.AlertEvent{
				Type:    m.typ,
				Message: fmt.Sprintf("%s high: %s (threshold %s)", m.label, format(m.value), format(m.threshold)),
				Value:   m.value,
				At:      at.UTC(),
			})
		}
	}
	return events, nil
}

// SensorDisconnected returns a sensor alert for owner, subject to the enablement check.
func (e *Engine) SensorDisconnected(ctx context.Context, owner, sensor string, since time.Duration) ([]domain.AlertEvent, error) {
	p, err := e.enabled(ctx, owner)
	if err != nil || p == nil {
		return nil, err
	}
	return []domain.AlertEvent{{
		Type:    domain.AlertSensor,
		Message: fmt.Sprintf("Sensor %s disconnected: no reading for %s", sensor, since.Round(time.Second)),
		At:      e.now().UTC(),
	}}, nil
}

// SystemError returns a system alert for owner, subject to the enablement check.
func (e *Engine) SystemError(ctx context.Context, owner, detail string) ([]domain.AlertEvent, error) {
	p, err := e.enabled(ctx, owner)
	if err != nil || p == nil {
		return nil, err
	}
	return []domain.AlertEvent{{
		Type:    domain.AlertSystem,
		Message: "System error: " + detail,
		At:      e.now().UTC(),
	}}, nil
}
