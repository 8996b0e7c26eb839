package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Dataset is the canonical in-memory corpus. It is immutable after
// BuildDataset returns and safe for concurrent readers.
type Dataset struct {
	rows     []Observation
	byName   map[string][]Observation
	stations []string
	years    []int
	first    time.Time
	last     time.Time
}

// BuildDataset sorts observations by station and time, rejects duplicate
// (station, time) pairs, forward-fills every station series, and freezes
// the result. The input slice is reordered in place.
func BuildDataset(rows []Observation) (*Dataset, FillReport, error) {
	if len(rows) == 0 {
		return nil, FillReport{}, ErrNoDataFound
	}

	slices.SortStableFunc(rows, func(a, b Observation) int {
		if c := cmp.Compare(a.Station, b.Station); c != 0 {
			return c
		}
		return a.Time.Compare(b.Time)
	})

	ds := &Dataset{
		rows:   rows,
		byName: make(map[string][]Observation),
		first:  rows[0].Time,
		last:   rows[0].Time,
	}
	report := newFillReport()
	years := make(map[int]struct{})

	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i].Station == rows[start].Station {
			if rows[i].Time.Equal(rows[i-1].Time) {
				return nil, FillReport{}, fmt.Errorf("%w: %s at %s", ErrDuplicateTimestamp,
					rows[i].Station, rows[i].Time.Format(time.DateTime))
			}
			continue
		}
		series := rows[start:i:i]
		report.merge(ForwardFill(series))
		ds.byName[series[0].Station] = series
		ds.stations = append(ds.stations, series[0].Station)
		start = i
	}

	for _, o := range rows {
		years[o.Year] = struct{}{}
		if o.Time.Before(ds.first) {
			ds.first = o.Time
		}
		if o.Time.After(ds.last) {
			ds.last = o.Time
		}
	}
	for y := range years {
		ds.years = append(ds.years, y)
	}
	slices.Sort(ds.years)

	return ds, report, nil
}

// Len returns the number of observations.
func (d *Dataset) Len() int { return len(d.rows) }

// Stations returns the station names present in the data, sorted.
func (d *Dataset) Stations() []string { return slices.Clone(d.stations) }

// Years returns the distinct years present in the data, ascending.
func (d *Dataset) Years() []int { return slices.Clone(d.years) }

// TimeRange returns the first and last observation times.
func (d *Dataset) TimeRange() (time.Time, time.Time) { return d.first, d.last }

// Series returns the time-ordered observations of a station. The returned
// slice is shared and must not be modified.
func (d *Dataset) Series(station string) ([]Observation, error) {
	s, ok := d.byName[station]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStation, station)
	}
	return s, nil
}

// Rows returns every observation, sorted by station then time. The returned
// slice is shared and must not be modified.
func (d *Dataset) Rows() []Observation { return d.rows }

// FilterYear returns the observations of one year. Year 0 returns all rows.
func (d *Dataset) FilterYear(year int) []Observation {
	if year == 0 {
		return d.rows
	}
	out := make([]Observation, 0, len(d.rows)/max(len(d.years), 1))
	for _, o := range d.rows {
		if o.Year == year {
			out = append(out, o)
		}
	}
	return out
}
