// Package ingest receives air-quality readings from the sensor bus and feeds them to alerting.
package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/youssefsn2/PFE/internal/domain"
)

// payloadFields is the order of values in a sensor payload.
var payloadFields = [...]string{"pm25", "pm10", "no2", "o3", "co", "aqi"}

// ParsePayload decodes a "pm25,pm10,no2,o3,co,aqi" sensor payload.
func ParsePayload(payload []byte) (domain.Reading, error) {
	parts := strings.Split(strings.TrimSpace(string(payload)), ",")
	if len(parts) != len(payloadFields) {
		return domain.Reading{}, fmt.Errorf("%w: expected %d fields, got %d", domain.ErrValidation, len(payloadFields), len(parts))
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Reading{}, fmt.Errorf("%w: field %s: %v", domain.ErrValidation, payloadFields[i], err)
		}
		values[i] = v
	}

	r := domain.Reading{
		PM25: values[0],
		PM10: values[1],
		NO2:  values[2],
		O3:   values[3],
		CO:   values[4],
		AQI:  values[5],
	}
	if !r.Valid() {
		return domain.Reading{}, fmt.Errorf("%w: non-finite value", domain.ErrValidation)
	}
	return r, nil
}
