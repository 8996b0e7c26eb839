// Package analytics computes the descriptive views of the air-quality corpus:
// per-station means, monthly trends, correlations, distributions, AQI shares,
// and WHO guideline exceedance. Every function takes already-filtered rows
// (see domain.Dataset.FilterYear) and ignores missing values.
package analytics

import (
	"cmp"
	"math"
	"slices"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// StationMean holds pollutant means of one station for the map layer.
type StationMean struct {
	Station string             `json:"station"`
	Geo     domain.Geo         `json:"geo"`
	Count   int                `json:"count"`
	Means   map[string]float64 `json:"means"`
}

// MonthlyMean holds pollutant means of one calendar month.
type MonthlyMean struct {
	Month int                `json:"month"`
	Means map[string]float64 `json:"means"`
}

// TrendColumns are the pollutants charted in the monthly trend.
func TrendColumns() []domain.Column {
	return []domain.Column{domain.PM25, domain.PM10, domain.SO2, domain.NO2, domain.O3}
}

// StationMeans averages the six pollutants per station.
func StationMeans(rows []domain.Observation, registry *domain.StationRegistry) []StationMean {
	groups := groupBy(rows, func(o domain.Observation) string { return o.Station })
	out := make([]StationMean, 0, len(groups))
	for _, g := range groups {
		out = append(out, StationMean{
			Station: g.key,
			Geo:     registry.Lookup(g.key),
			Count:   len(g.rows),
			Means:   means(g.rows, domain.PollutantColumns()),
		})
	}
	return out
}

// MonthlyTrend averages the trend pollutants per calendar month, January first.
func MonthlyTrend(rows []domain.Observation) []MonthlyMean {
	var buckets [12][]domain.Observation
	for _, o := range rows {
		if o.Month >= 1 && o.Month <= 12 {
			buckets[o.Month-1] = append(buckets[o.Month-1], o)
		}
	}
	var out []MonthlyMean
	for i, b := range buckets {
		if len(b) == 0 {
			continue
		}
		out = append(out, MonthlyMean{Month: i + 1, Means: means(b, TrendColumns())})
	}
	return out
}

type group struct {
	key  string
	rows []domain.Observation
}

// groupBy partitions rows by key, returning groups sorted by key.
func groupBy(rows []domain.Observation, key func(domain.Observation) string) []group {
	idx := make(map[string]int)
	var groups []group
	for _, o := range rows {
		k := key(o)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].rows = append(groups[i].rows, o)
	}
	slices.SortFunc(groups, func(a, b group) int { return cmp.Compare(a.key, b.key) })
	return groups
}

// means returns the mean of each column over valid values. Columns without
// any valid value are omitted.
func means(rows []domain.Observation, cols []domain.Column) map[string]float64 {
	out := make(map[string]float64, len(cols))
	for _, c := range cols {
		vals := validValues(rows, c)
		if len(vals) == 0 {
			continue
		}
		out[c.String()] = stat.Mean(vals, nil)
	}
	return out
}

func validValues(rows []domain.Observation, c domain.Column) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, o := range rows {
		if v := o.Value(c); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}
