package domain

import (
	"fmt"
	"math"
)

// MinMaxScaler maps each feature linearly onto [0,1] using the observed
// minimum and maximum of a station's history.
type MinMaxScaler struct {
	Min [FeatureCount]float64 `json:"min"`
	Max [FeatureCount]float64 `json:"max"`
}

// FitSeries fits a scaler on the feature columns of a station series.
// Missing values are ignored.
func FitSeries(series []Observation) (MinMaxScaler, error) {
	rows := make([][FeatureCount]float64, len(series))
	for i, o := range series {
		rows[i] = o.Features()
	}
	return Fit(rows)
}

// Fit computes per-feature bounds. A feature with no valid values or with
// max == min fails with ErrDegenerateScale.
func Fit(rows [][FeatureCount]float64) (MinMaxScaler, error) {
	var s MinMaxScaler
	for j := range FeatureCount {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			v := r[j]
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if math.IsInf(lo, 1) || hi == lo {
			return MinMaxScaler{}, fmt.Errorf("%w: %s has zero range", ErrDegenerateScale, FeatureColumns()[j])
		}
		s.Min[j], s.Max[j] = lo, hi
	}
	return s, nil
}

// Scale maps one value of feature j into normalized space.
func (s MinMaxScaler) Scale(j int, v float64) float64 {
	return (v - s.Min[j]) / (s.Max[j] - s.Min[j])
}

// Transform normalizes a whole window.
func (s MinMaxScaler) Transform(rows [WindowSize][FeatureCount]float64) [WindowSize][FeatureCount]float64 {
	var out [WindowSize][FeatureCount]float64
	for i := range rows {
		for j := range FeatureCount {
			out[i][j] = s.Scale(j, rows[i][j])
		}
	}
	return out
}

// InverseTransform maps a normalized value of feature j back to physical
// units. Only feature j's bounds are used.
func (s MinMaxScaler) InverseTransform(j int, v float64) float64 {
	return v*(s.Max[j]-s.Min[j]) + s.Min[j]
}
