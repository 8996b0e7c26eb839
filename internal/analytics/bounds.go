package analytics

import (
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

// PredictionBounds is the selectable date range for forecasts. The first two
// days are excluded so a full window exists for every hour in range.
type PredictionBounds struct {
	MinDate string `json:"min_date"`
	MaxDate string `json:"max_date"`
}

// Bounds derives the forecast date range and the year filter options.
func Bounds(ds *domain.Dataset) (PredictionBounds, []int) {
	first, last := ds.TimeRange()
	return PredictionBounds{
		MinDate: first.Add(48 * time.Hour).Format(time.DateOnly),
		MaxDate: last.Format(time.DateOnly),
	}, ds.Years()
}
