package analytics

import (
	"math"
	"slices"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BoxStats summarizes one station's distribution of a column for a boxplot.
// Quantiles use the empirical (inverse CDF) definition.
type BoxStats struct {
	Station      string  `json:"station"`
	Count        int     `json:"count"`
	Min          float64 `json:"min"`
	Q1           float64 `json:"q1"`
	Median       float64 `json:"median"`
	Q3           float64 `json:"q3"`
	Max          float64 `json:"max"`
	LowerWhisker float64 `json:"lower_whisker"`
	UpperWhisker float64 `json:"upper_whisker"`
	Outliers     int     `json:"outliers"`
}

// ColumnSummary is the descriptive table row of one pollutant.
type ColumnSummary struct {
	Column       string  `json:"column"`
	Mean         float64 `json:"mean"`
	Min          float64 `json:"min"`
	Median       float64 `json:"median"`
	Q3           float64 `json:"q3"`
	Max          float64 `json:"max"`
	AvailablePct float64 `json:"available_pct"`
	Unit         string  `json:"unit"`
}

// Distribution computes boxplot statistics of a column per station.
// Stations without valid values are skipped.
func Distribution(rows []domain.Observation, col domain.Column) []BoxStats {
	var out []BoxStats
	for _, g := range groupBy(rows, func(o domain.Observation) string { return o.Station }) {
		vals := validValues(g.rows, col)
		if len(vals) == 0 {
			continue
		}
		slices.Sort(vals)
		b := BoxStats{
			Station: g.key,
			Count:   len(vals),
			Min:     vals[0],
			Q1:      stat.Quantile(0.25, stat.Empirical, vals, nil),
			Median:  stat.Quantile(0.5, stat.Empirical, vals, nil),
			Q3:      stat.Quantile(0.75, stat.Empirical, vals, nil),
			Max:     vals[len(vals)-1],
		}
		iqr := b.Q3 - b.Q1
		lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
		b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
		for _, v := range vals {
			if v < lo || v > hi {
				b.Outliers++
				continue
			}
			b.LowerWhisker = math.Min(b.LowerWhisker, v)
			b.UpperWhisker = math.Max(b.UpperWhisker, v)
		}
		out = append(out, b)
	}
	return out
}

// PollutantSummary describes each pollutant across all given rows.
// Columns without valid values are skipped.
func PollutantSummary(rows []domain.Observation) []ColumnSummary {
	var out []ColumnSummary
	for _, c := range domain.PollutantColumns() {
		vals := validValues(rows, c)
		if len(vals) == 0 {
			continue
		}
		slices.Sort(vals)
		out = append(out, ColumnSummary{
			Column:       c.String(),
			Mean:         stat.Mean(vals, nil),
			Min:          floats.Min(vals),
			Median:       stat.Quantile(0.5, stat.Empirical, vals, nil),
			Q3:           stat.Quantile(0.75, stat.Empirical, vals, nil),
			Max:          floats.Max(vals),
			AvailablePct: 100 * float64(len(vals)) / float64(len(rows)),
			Unit:         "µg/m³",
		})
	}
	return out
}
