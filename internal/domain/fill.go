package domain

import "maps"

// FillReport counts cells that forward fill could not resolve because no
// earlier valid value exists in the station series.
type FillReport struct {
	Filled     int            `json:"filled"`
	Unresolved map[string]int `json:"unresolved"`
}

func newFillReport() FillReport {
	return FillReport{Unresolved: make(map[string]int)}
}

// UnresolvedTotal sums unresolved cells across columns.
func (r FillReport) UnresolvedTotal() int {
	total := 0
	for _, n := range r.Unresolved {
		total += n
	}
	return total
}

func (r *FillReport) merge(other FillReport) {
	if r.Unresolved == nil {
		r.Unresolved = make(map[string]int)
	}
	r.Filled += other.Filled
	for k, v := range other.Unresolved {
		r.Unresolved[k] += v
	}
}

// Clone returns a deep copy of the report.
func (r FillReport) Clone() FillReport {
	return FillReport{Filled: r.Filled, Unresolved: maps.Clone(r.Unresolved)}
}

// ForwardFill replaces missing measurements with the last valid value of the
// same column, walking the series in order. The series must belong to one
// station and be sorted by time. Leading gaps remain NaN.
func ForwardFill(series []Observation) FillReport {
	report := newFillReport()
	for _, c := range MeasurementColumns() {
		last, seen := 0.0, false
		for i := range series {
			if series[i].Valid(c) {
				last, seen = series[i].Value(c), true
				continue
			}
			if !seen {
				report.Unresolved[c.String()]++
				continue
			}
			series[i].Set(c, last)
			report.Filled++
		}
	}
	return report
}
