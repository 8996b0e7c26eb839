// Package postgres loads PRSA observations from a PostgreSQL table.
//
// Expected schema:
//
//	CREATE TABLE prsa_observations (
//	    station text NOT NULL,
//	    year    integer NOT NULL,
//	    month   integer NOT NULL,
//	    day     integer NOT NULL,
//	    hour    integer NOT NULL,
//	    pm25 double precision, pm10 double precision, so2 double precision,
//	    no2  double precision, co   double precision, o3  double precision,
//	    temp double precision, pres double precision, dewp double precision,
//	    rain double precision, wspm double precision,
//	    PRIMARY KEY (station, year, month, day, hour)
//	);
//
// NULL measurements load as missing values.
package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectObservationsSQL = `
    SELECT station, year, month, day, hour,
           pm25, pm10, so2, no2, co, o3, temp, pres, dewp, rain, wspm
    FROM prsa_observations
    ORDER BY station, year, month, day, hour
`

// Source reads the full observation table.
type Source struct {
	pool *pgxpool.Pool
}

// NewSource connects a pgx pool to databaseURL.
func NewSource(ctx context.Context, databaseURL string) (*Source, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	return &Source{pool: pool}, nil
}

// Close releases the pool.
func (s *Source) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Load returns every row. An empty table is ErrNoDataFound.
func (s *Source) Load(ctx context.Context) ([]domain.Observation, error) {
	rows, err := s.pool.Query(ctx, selectObservationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[record])
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: prsa_observations is empty", domain.ErrNoDataFound)
	}

	out := make([]domain.Observation, len(records))
	for i, r := range records {
		out[i] = r.observation()
	}
	return out, nil
}

func (s *Source) String() string {
	return "postgres:prsa_observations"
}

// record mirrors one table row; nullable columns scan into pointers.
type record struct {
	Station string   `db:"station"`
	Year    int      `db:"year"`
	Month   int      `db:"month"`
	Day     int      `db:"day"`
	Hour    int      `db:"hour"`
	PM25    *float64 `db:"pm25"`
	PM10    *float64 `db:"pm10"`
	SO2     *float64 `db:"so2"`
	NO2     *float64 `db:"no2"`
	CO      *float64 `db:"co"`
	O3      *float64 `db:"o3"`
	TEMP    *float64 `db:"temp"`
	PRES    *float64 `db:"pres"`
	DEWP    *float64 `db:"dewp"`
	RAIN    *float64 `db:"rain"`
	WSPM    *float64 `db:"wspm"`
}

func (r record) observation() domain.Observation {
	o := domain.NewObservation(r.Station, r.Year, r.Month, r.Day, r.Hour)
	vals := []*float64{r.PM25, r.PM10, r.SO2, r.NO2, r.CO, r.O3, r.TEMP, r.PRES, r.DEWP, r.RAIN, r.WSPM}
	for i, c := range domain.MeasurementColumns() {
		o.Set(c, deref(vals[i]))
	}
	return o
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
