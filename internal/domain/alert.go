package domain

import (
	"math"
	"time"
)

// TemperatureUnit is the display unit preference.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "CELSIUS"
	Fahrenheit TemperatureUnit = "FAHRENHEIT"
)

// Preferences holds a user's alert thresholds. At most one per user.
type Preferences struct {
	UserID          string          `json:"-"`
	TemperatureUnit TemperatureUnit `json:"temperature_unit" validate:"oneof=CELSIUS FAHRENHEIT"`
	AlertsEnabled   bool            `json:"alerts_enabled"`
	AQI             float64         `json:"threshold_aqi" validate:"gte=0"`
	PM10            float64         `json:"threshold_pm10" validate:"gte=0"`
	PM25            float64         `json:"threshold_pm25" validate:"gte=0"`
	NO2             float64         `json:"threshold_no2" validate:"gte=0"`
	O3              float64         `json:"threshold_o3" validate:"gte=0"`
	CO              float64         `json:"threshold_co" validate:"gte=0"`
}

// DefaultPreferences returns the WHO/AQI based defaults for a new user.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:          userID,
		TemperatureUnit: Celsius,
		AlertsEnabled:   true,
		AQI:             100,
		PM10:            50,
		PM25:            25,
		NO2:             200,
		O3:              180,
		CO:              10,
	}
}

// Reading is one air-quality sample.
type Reading struct {
	AQI  float64   `json:"aqi" validate:"gte=0"`
	PM25 float64   `json:"pm25" validate:"gte=0"`
	PM10 float64   `json:"pm10" validate:"gte=0"`
	NO2  float64   `json:"no2" validate:"gte=0"`
	O3   float64   `json:"o3" validate:"gte=0"`
	CO   float64   `json:"co" validate:"gte=0"`
	At   time.Time `json:"at"`
}

// Valid reports whether every metric is a finite number.
func (r Reading) Valid() bool {
	for _, v := range []float64{r.AQI, r.PM25, r.PM10, r.NO2, r.O3, r.CO} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AlertType tags an alert with the condition that raised it.
type AlertType string

const (
	AlertPollution AlertType = "pollution"
	AlertPM10      AlertType = "pm10"
	AlertPM25      AlertType = "pm25"
	AlertNO2       AlertType = "no2"
	AlertO3        AlertType = "o3"
	AlertCO        AlertType = "co"
	AlertSensor    AlertType = "sensor"
	AlertSystem    AlertType = "system"
)

// AlertEvent is produced by evaluation and not yet persisted.
type AlertEvent struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
	Value   float64   `json:"value,omitempty"`
	At      time.Time `json:"at"`
}

// AlertRecord is a persisted alert. Never mutated after creation.
type AlertRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
