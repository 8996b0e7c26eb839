package pipeline_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/adapter/csvdir"
	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/couchcryptid/air-quality-forecast/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fixtures under testdata/prsa hold four days (2013-03-01 to 2013-03-04)
// for Dongsi and Tiantan with three NA cells:
//   - Dongsi 2013-03-02 05:00 PM2.5
//   - Dongsi 2013-03-03 02:00 CO
//   - Tiantan 2013-03-01 00:00 O3 (first row, cannot be filled)
func loadMockDataset(t *testing.T) (*domain.Dataset, domain.FillReport) {
	t.Helper()
	src := csvdir.NewSource(filepath.Join("testdata", "prsa"), discardLogger())
	ds, report, err := pipeline.LoadDataset(context.Background(), src, discardLogger(), newTestMetrics())
	require.NoError(t, err)
	return ds, report
}

func TestMockData_Load(t *testing.T) {
	ds, report := loadMockDataset(t)

	assert.Equal(t, 192, ds.Len())
	assert.Equal(t, []string{"Dongsi", "Tiantan"}, ds.Stations())
	assert.Equal(t, []int{2013}, ds.Years())
	first, last := ds.TimeRange()
	assert.Equal(t, time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2013, 3, 4, 23, 0, 0, 0, time.UTC), last)

	assert.Equal(t, 2, report.Filled)
	assert.Equal(t, 1, report.UnresolvedTotal())
	assert.Equal(t, 1, report.Unresolved["O3"])

	dongsi, err := ds.Series("Dongsi")
	require.NoError(t, err)
	assert.Equal(t, 60.5, dongsi[0].Value(domain.PM25))
	assert.Equal(t, 76.0, dongsi[29].Value(domain.PM25), "05:00 filled from 04:00")
}

func TestMockData_PredictEveryHourOfDayTwo(t *testing.T) {
	ds, _ := loadMockDataset(t)
	fx := newFixture(t, nil, domain.WindowOptions{RequireContiguous: true})
	fx.forecaster.SetDataset(ds)

	for _, station := range ds.Stations() {
		for hour := range 24 {
			sel := domain.Selection{Station: station, Date: "2013-03-02", Hour: hour}
			pred, err := fx.forecaster.Predict(context.Background(), sel)
			if station == "Tiantan" && hour == 0 {
				// The window starts at the unfilled O3 cell.
				require.ErrorIs(t, err, domain.ErrMissingValues)
				continue
			}
			require.NoError(t, err, sel.Key())
			assert.Equal(t, sel.Key(), pred.Key)
			assert.Equal(t, sel.Target().Add(-domain.WindowSize*time.Hour), pred.HistoryTimes[0])
			assert.Equal(t, sel.Target().Add(-time.Hour), pred.HistoryTimes[domain.WindowSize-1])
			require.NotNil(t, pred.Actual)
			assert.GreaterOrEqual(t, pred.Predicted, pred.Scaler.Min[0])
			assert.LessOrEqual(t, pred.Predicted, pred.Scaler.Max[0])
		}
	}
	assert.Len(t, fx.publisher.published, 47)
}

func TestMockData_WindowMatchesSeries(t *testing.T) {
	ds, _ := loadMockDataset(t)
	fx := newFixture(t, nil, domain.WindowOptions{})
	fx.forecaster.SetDataset(ds)

	pred, err := fx.forecaster.Predict(context.Background(), domain.Selection{Station: "Dongsi", Date: "2013-03-02", Hour: 12})
	require.NoError(t, err)

	dongsi, err := ds.Series("Dongsi")
	require.NoError(t, err)
	for i := range domain.WindowSize {
		assert.Equal(t, dongsi[12+i].Value(domain.PM25), pred.History[i])
	}
	assert.Equal(t, pred.History[16], pred.History[17])
}

func TestMockData_FirstDayHasNoHistory(t *testing.T) {
	ds, _ := loadMockDataset(t)
	fx := newFixture(t, nil, domain.WindowOptions{})
	fx.forecaster.SetDataset(ds)

	_, err := fx.forecaster.Predict(context.Background(), domain.Selection{Station: "Tiantan", Date: "2013-03-01", Hour: 23})
	require.ErrorIs(t, err, domain.ErrInsufficientHistory)

	_, err = fx.forecaster.Predict(context.Background(), domain.Selection{Station: "Tiantan", Date: "2013-03-02", Hour: 1})
	require.NoError(t, err)
}
