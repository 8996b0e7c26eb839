package analytics

import (
	"fmt"
	"math"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix is a Pearson correlation matrix over the measurement
// columns. A nil cell means the coefficient is undefined (zero variance or
// fewer than two shared rows). Pairs holds the row count behind each cell.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Rows    int          `json:"rows"`
	Pairs   [][]int      `json:"pairs"`
	Values  [][]*float64 `json:"values"`
}

// Correlation computes Pearson coefficients of the eleven measurement
// columns. Missing values are dropped pairwise: each cell uses the rows
// where both of its columns are present.
func Correlation(rows []domain.Observation) (CorrelationMatrix, error) {
	cols := domain.MeasurementColumns()
	m := CorrelationMatrix{
		Rows:   len(rows),
		Pairs:  make([][]int, len(cols)),
		Values: make([][]*float64, len(cols)),
	}
	for i, c := range cols {
		m.Columns = append(m.Columns, c.String())
		m.Pairs[i] = make([]int, len(cols))
		m.Values[i] = make([]*float64, len(cols))
	}

	var x, y []float64
	maxPairs := 0
	for i, ci := range cols {
		for j := i; j < len(cols); j++ {
			cj := cols[j]
			x, y = x[:0], y[:0]
			for _, o := range rows {
				if o.Valid(ci) && o.Valid(cj) {
					x = append(x, o.Value(ci))
					y = append(y, o.Value(cj))
				}
			}
			m.Pairs[i][j], m.Pairs[j][i] = len(x), len(x)
			maxPairs = max(maxPairs, len(x))
			if len(x) < 2 {
				continue
			}
			r := stat.Correlation(x, y, nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			if i == j {
				r = 1
			}
			m.Values[i][j] = &r
			m.Values[j][i] = &r
		}
	}
	if maxPairs < 2 {
		return CorrelationMatrix{}, fmt.Errorf("%w: %d usable rows for correlation", domain.ErrNoDataFound, maxPairs)
	}
	return m, nil
}
