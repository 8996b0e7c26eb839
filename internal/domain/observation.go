package domain

import (
	"math"
	"time"
)

// Column identifies one numeric measurement of an Observation.
type Column int

// Measurement columns in CSV header order. The first six are the model
// features, in the order the model expects them.
const (
	PM25 Column = iota
	PM10
	SO2
	NO2
	CO
	O3
	TEMP
	PRES
	DEWP
	RAIN
	WSPM

	numColumns
)

// FeatureCount is the width of a model input row.
const FeatureCount = 6

var columnNames = [numColumns]string{
	PM25: "PM2.5",
	PM10: "PM10",
	SO2:  "SO2",
	NO2:  "NO2",
	CO:   "CO",
	O3:   "O3",
	TEMP: "TEMP",
	PRES: "PRES",
	DEWP: "DEWP",
	RAIN: "RAIN",
	WSPM: "WSPM",
}

// String returns the CSV header name of the column.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return "unknown"
	}
	return columnNames[c]
}

// ParseColumn resolves a CSV header name. Matching is case-sensitive.
func ParseColumn(name string) (Column, bool) {
	for i, n := range columnNames {
		if n == name {
			return Column(i), true
		}
	}
	return 0, false
}

// MeasurementColumns are the eleven columns forward-filled at load time.
func MeasurementColumns() []Column {
	cols := make([]Column, numColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// FeatureColumns are the model inputs: PM2.5, PM10, SO2, NO2, CO, O3.
func FeatureColumns() []Column {
	return []Column{PM25, PM10, SO2, NO2, CO, O3}
}

// PollutantColumns are the six pollutant columns. Same set as the features.
func PollutantColumns() []Column {
	return FeatureColumns()
}

// RequiredColumns lists every CSV header a source file must carry.
func RequiredColumns() []string {
	cols := []string{"year", "month", "day", "hour", "station"}
	for _, c := range MeasurementColumns() {
		cols = append(cols, c.String())
	}
	return cols
}

// Observation is one hourly reading of one station.
type Observation struct {
	Station string    `json:"station"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Day     int       `json:"day"`
	Hour    int       `json:"hour"`
	Time    time.Time `json:"time"`

	// Values holds the measurements indexed by Column. NaN marks a missing cell.
	Values [numColumns]float64 `json:"-"`
}

// NewObservation builds an observation with every measurement missing and
// Time derived from the date fields.
func NewObservation(station string, year, month, day, hour int) Observation {
	o := Observation{
		Station: station,
		Year:    year,
		Month:   month,
		Day:     day,
		Hour:    hour,
		Time:    ObservationTime(year, month, day, hour),
	}
	for i := range o.Values {
		o.Values[i] = math.NaN()
	}
	return o
}

// ObservationTime derives the timestamp of a reading.
func ObservationTime(year, month, day, hour int) time.Time {
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
}

// Value returns the measurement for a column.
func (o Observation) Value(c Column) float64 {
	return o.Values[c]
}

// Set stores a measurement for a column.
func (o *Observation) Set(c Column, v float64) {
	o.Values[c] = v
}

// Valid reports whether the column holds a value.
func (o Observation) Valid(c Column) bool {
	return !math.IsNaN(o.Values[c])
}

// Features projects the observation onto FeatureColumns.
func (o Observation) Features() [FeatureCount]float64 {
	var f [FeatureCount]float64
	for i, c := range FeatureColumns() {
		f[i] = o.Values[c]
	}
	return f
}
