package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// WindowSize is the number of antecedent hours fed to the model.
const WindowSize = 24

// Window is the model input for one target hour: the WindowSize rows that
// precede the target by position in the station series.
type Window struct {
	Station  string
	Target   time.Time
	Times    [WindowSize]time.Time
	Features [WindowSize][FeatureCount]float64

	// History is the PM2.5 column of Features.
	History [WindowSize]float64

	// Actual is the PM2.5 reading at the target hour. HasActual is false
	// when the target row's PM2.5 is missing.
	Actual    float64
	HasActual bool

	// Gaps counts adjacent rows (including the last row and the target) whose
	// spacing is not exactly one hour.
	Gaps int
}

// WindowOptions tunes window extraction.
type WindowOptions struct {
	// RequireContiguous rejects windows with calendar gaps.
	RequireContiguous bool
}

// ExtractWindow locates target in a time-sorted station series and returns
// the WindowSize rows immediately before it. There is no fallback to a nearby
// timestamp.
func ExtractWindow(series []Observation, target time.Time, opts WindowOptions) (Window, error) {
	target = target.UTC()
	pos := sort.Search(len(series), func(i int) bool {
		return !series[i].Time.Before(target)
	})
	if pos == len(series) || !series[pos].Time.Equal(target) {
		return Window{}, fmt.Errorf("%w: %s", ErrTargetNotFound, target.Format(time.DateTime))
	}
	if pos < WindowSize {
		return Window{}, fmt.Errorf("%w: %d of %d rows before %s", ErrInsufficientHistory,
			pos, WindowSize, target.Format(time.DateTime))
	}

	w := Window{
		Station: series[pos].Station,
		Target:  target,
	}
	rows := series[pos-WindowSize : pos]
	for i, o := range rows {
		w.Times[i] = o.Time
		w.Features[i] = o.Features()
		w.History[i] = o.Value(PM25)
		for j, v := range w.Features[i] {
			if math.IsNaN(v) {
				return Window{}, fmt.Errorf("%w: %s at %s", ErrMissingValues,
					FeatureColumns()[j], o.Time.Format(time.DateTime))
			}
		}
		if i > 0 && o.Time.Sub(rows[i-1].Time) != time.Hour {
			w.Gaps++
		}
	}
	if target.Sub(rows[WindowSize-1].Time) != time.Hour {
		w.Gaps++
	}
	if opts.RequireContiguous && w.Gaps > 0 {
		return Window{}, fmt.Errorf("%w: %d gaps before %s", ErrNonContiguousWindow,
			w.Gaps, target.Format(time.DateTime))
	}

	actual := series[pos].Value(PM25)
	if !math.IsNaN(actual) {
		w.Actual, w.HasActual = actual, true
	}
	return w, nil
}

// Matrix returns the features as a WindowSize×FeatureCount slice matrix.
func (w Window) Matrix() [][]float64 {
	m := make([][]float64, WindowSize)
	for i := range w.Features {
		m[i] = w.Features[i][:]
	}
	return m
}
