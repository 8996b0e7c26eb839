package postgres

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestRecordObservation(t *testing.T) {
	r := record{
		Station: "Huairou", Year: 2014, Month: 6, Day: 2, Hour: 23,
		PM25: ptr(41), PM10: ptr(60), SO2: nil, NO2: ptr(33), CO: ptr(700), O3: ptr(90),
		TEMP: ptr(24.5), PRES: ptr(1001), DEWP: ptr(12), RAIN: ptr(0), WSPM: ptr(1.8),
	}

	o := r.observation()

	assert.Equal(t, "Huairou", o.Station)
	assert.Equal(t, time.Date(2014, 6, 2, 23, 0, 0, 0, time.UTC), o.Time)
	assert.Equal(t, 41.0, o.Value(domain.PM25))
	assert.True(t, math.IsNaN(o.Value(domain.SO2)), "NULL loads as missing")
	assert.Equal(t, 700.0, o.Value(domain.CO))
	assert.Equal(t, 1.8, o.Value(domain.WSPM))
}
