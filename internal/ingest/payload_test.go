package ingest

import (
	"errors"
	"testing"

	"github.com/youssefsn2/PFE/internal/domain"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.Reading
		wantErr bool
	}{
		{
			name:    "publisher format",
			payload: "12.5,40.25,18,55.1,0.8,142",
			want:    domain.Reading{PM25: 12.5, PM10: 40.25, NO2: 18, O3: 55.1, CO: 0.8, AQI: 142},
		},
		{
			name:    "surrounding whitespace",
			payload: " 1, 2 ,3,4,5,6\n",
			want:    domain.Reading{PM25: 1, PM10: 2, NO2: 3, O3: 4, CO: 5, AQI: 6},
		},
		{name: "too few fields", payload: "1,2,3,4,5", wantErr: true},
		{name: "too many fields", payload: "1,2,3,4,5,6,7", wantErr: true},
		{name: "not a number", payload: "1,2,three,4,5,6", wantErr: true},
		{name: "nan", payload: "NaN,2,3,4,5,6", wantErr: true},
		{name: "empty", payload: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload([]byte(tt.payload))
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("ParsePayload() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePayload() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePayload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
