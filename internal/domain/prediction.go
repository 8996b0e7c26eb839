package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Selection is the user's choice of station, calendar date, and hour.
type Selection struct {
	Station string `json:"station" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Hour    int    `json:"hour" validate:"gte=0,lte=23"`
}

// Validate checks the selection fields without consulting the dataset.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Station) == "" {
		return fmt.Errorf("%w: station is required", ErrInvalidSelection)
	}
	if _, err := time.Parse(time.DateOnly, s.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidSelection, s.Date)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d outside 0-23", ErrInvalidSelection, s.Hour)
	}
	return nil
}

// Key identifies the selection for result caching: station_date_hour.
func (s Selection) Key() string {
	return fmt.Sprintf("%s_%s_%d", s.Station, s.Date, s.Hour)
}

// Target returns the target timestamp. The selection must be valid.
func (s Selection) Target() time.Time {
	d, _ := time.Parse(time.DateOnly, s.Date)
	return d.Add(time.Duration(s.Hour) * time.Hour)
}

// SelectionAt builds a selection from a station and a timestamp.
func SelectionAt(station string, t time.Time) Selection {
	t = t.UTC()
	return Selection{Station: station, Date: t.Format(time.DateOnly), Hour: t.Hour()}
}

// Prediction is the outcome of one forecast request.
type Prediction struct {
	ID            string                `json:"id"`
	Key           string                `json:"key"`
	Station       string                `json:"station"`
	Geo           Geo                   `json:"geo"`
	TargetTime    time.Time             `json:"target_time"`
	Predicted     float64               `json:"predicted_value"`
	Actual        *float64              `json:"actual_value"`
	AbsoluteError *float64              `json:"absolute_error"`
	History       [WindowSize]float64   `json:"history"`
	HistoryTimes  [WindowSize]time.Time `json:"history_times"`
	AQICategory   string                `json:"aqi_category"`
	WindowGaps    int                   `json:"window_gaps"`
	Scaler        MinMaxScaler          `json:"scaler"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NewPrediction assembles a result from a window and a denormalized value.
func NewPrediction(id string, w Window, geo Geo, scaler MinMaxScaler, predicted float64) Prediction {
	p := Prediction{
		ID:           id,
		Key:          SelectionAt(w.Station, w.Target).Key(),
		Station:      w.Station,
		Geo:          geo,
		TargetTime:   w.Target,
		Predicted:    predicted,
		History:      w.History,
		HistoryTimes: w.Times,
		AQICategory:  ClassifyPM25(predicted),
		WindowGaps:   w.Gaps,
		Scaler:       scaler,
		CreatedAt:    Now(),
	}
	if w.HasActual {
		actual := w.Actual
		absErr := math.Abs(predicted - actual)
		p.Actual = &actual
		p.AbsoluteError = &absErr
	}
	return p
}
