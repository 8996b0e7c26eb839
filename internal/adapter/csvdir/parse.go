package csvdir

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// naValues are the cell spellings treated as missing.
var naValues = []string{"NA", "NaN", "nan", ""}

// Parse reads one PRSA CSV file into observations. Columns are matched by
// header name; extra columns (No, wd) are ignored. name is only used in
// error messages.
func Parse(r io.Reader, name string) ([]domain.Observation, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSchema, name, df.Err)
	}

	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, col := range domain.RequiredColumns() {
		if !present[col] {
			return nil, fmt.Errorf("%w: %s: missing column %q", domain.ErrSchema, name, col)
		}
	}

	n := df.Nrow()
	stations := df.Col("station").Records()
	var timeFields [4][]int
	for i, col := range []string{"year", "month", "day", "hour"} {
		vals, err := intColumn(df.Col(col), col, name)
		if err != nil {
			return nil, err
		}
		timeFields[i] = vals
	}

	out := make([]domain.Observation, n)
	for i := range n {
		y, m, d, h := timeFields[0][i], timeFields[1][i], timeFields[2][i], timeFields[3][i]
		if !validTime(y, m, d, h) {
			return nil, fmt.Errorf("%w: %s line %d: invalid date %04d-%02d-%02d hour %d",
				domain.ErrSchema, name, i+2, y, m, d, h)
		}
		out[i] = domain.NewObservation(strings.TrimSpace(stations[i]), y, m, d, h)
	}
	for _, c := range domain.MeasurementColumns() {
		vals, err := floatColumn(df.Col(c.String()), c.String(), name)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			out[i].Set(c, v)
		}
	}
	return out, nil
}

// validTime reports whether the fields name a real calendar hour.
// time.Date normalizes overflow, so a round trip catches Feb 30 or hour 24.
func validTime(year, month, day, hour int) bool {
	t := domain.ObservationTime(year, month, day, hour)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day && t.Hour() == hour
}

// floatColumn parses a measurement column. Only naValues spellings are
// missing; any other unparsable cell is a schema error.
func floatColumn(s series.Series, col, name string) ([]float64, error) {
	recs := s.Records()
	na := s.IsNaN()
	out := make([]float64, len(recs))
	for i, rec := range recs {
		if na[i] {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: invalid %s %q", domain.ErrSchema, name, i+2, col, rec)
		}
		out[i] = v
	}
	return out, nil
}

// intColumn parses a time field. Data lines are numbered from 2, after the
// header.
func intColumn(s series.Series, col, name string) ([]int, error) {
	recs := s.Records()
	out := make([]int, len(recs))
	for i, rec := range recs {
		v, err := strconv.Atoi(strings.TrimSpace(rec))
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: invalid %s %q", domain.ErrSchema, name, i+2, col, rec)
		}
		out[i] = v
	}
	return out, nil
}
