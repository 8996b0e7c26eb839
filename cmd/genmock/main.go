// Command genmock writes synthetic PRSA-format CSV files, one per station,
// for local runs and test fixtures. Output is deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -stations Dongsi,Tiantan \
//	  -start 2013-03-01 -days 4 -missing 0.02 -seed 42
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var header = []string{
	"No", "year", "month", "day", "hour",
	"PM2.5", "PM10", "SO2", "NO2", "CO", "O3",
	"TEMP", "PRES", "DEWP", "RAIN", "wd", "WSPM", "station",
}

var windDirections = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

type options struct {
	out      string
	stations []string
	start    time.Time
	days     int
	missing  float64
	seed     uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for generated CSV files")
	stations := flag.String("stations", "Dongsi,Tiantan", "comma-separated station names")
	start := flag.String("start", "2013-03-01", "first day (YYYY-MM-DD)")
	days := flag.Int("days", 4, "number of days per station")
	missing := flag.Float64("missing", 0.02, "fraction of measurement cells written as NA")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return errors.New("missing required flag: -out")
	}
	first, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *days <= 0 {
		return errors.New("-days must be positive")
	}
	if *missing < 0 || *missing >= 1 {
		return errors.New("-missing must be in [0, 1)")
	}

	opts := options{
		out:      *out,
		stations: splitList(*stations),
		start:    first,
		days:     *days,
		missing:  *missing,
		seed:     *seed,
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return err
	}

	registry := domain.NewStationRegistry(domain.DefaultStations())
	for i, name := range opts.stations {
		if !registry.Known(name) {
			log.Printf("warning: %s is not a PRSA station, it will be placed at the city centre", name)
		}
		records := generate(name, opts, uint64(i))
		path := filepath.Join(opts.out, fileName(name, opts))
		if err := writeCSV(path, records); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("%s: %d rows -> %s", name, len(records)-1, path)
	}
	return nil
}

func fileName(station string, opts options) string {
	last := opts.start.AddDate(0, 0, opts.days-1)
	return fmt.Sprintf("PRSA_Data_%s_%s-%s.csv", station, opts.start.Format("20060102"), last.Format("20060102"))
}

// generate produces the header plus one row per hour. PM2.5 follows a daily
// cycle with AR(1) noise; the other pollutants are tied to it so the
// correlation views have something to show.
func generate(station string, opts options, stream uint64) [][]string {
	rng := rand.New(rand.NewPCG(opts.seed, stream))
	hours := opts.days * 24
	records := make([][]string, 0, hours+1)
	records = append(records, header)

	base := 60 + 30*rng.Float64()
	noise := 0.0
	for h := range hours {
		t := opts.start.Add(time.Duration(h) * time.Hour)
		diurnal := math.Sin(2 * math.Pi * float64(t.Hour()-6) / 24)
		noise = 0.8*noise + rng.NormFloat64()*8
		pm25 := math.Max(3, base+25*diurnal+noise)

		values := map[domain.Column]float64{
			domain.PM25: pm25,
			domain.PM10: pm25*1.3 + 10 + rng.Float64()*15,
			domain.SO2:  math.Max(2, pm25*0.15+rng.NormFloat64()*3),
			domain.NO2:  math.Max(5, pm25*0.5+20+rng.NormFloat64()*6),
			domain.CO:   math.Max(100, pm25*12+300+rng.NormFloat64()*80),
			domain.O3:   math.Max(2, 60-pm25*0.3-25*diurnal+rng.NormFloat64()*5),
			domain.TEMP: 5 + 6*diurnal + rng.NormFloat64(),
			domain.PRES: 1020 + rng.NormFloat64()*3,
			domain.DEWP: -15 + rng.NormFloat64()*2,
			domain.RAIN: 0,
			domain.WSPM: math.Abs(2 + rng.NormFloat64()),
		}

		row := []string{
			strconv.Itoa(h + 1),
			strconv.Itoa(t.Year()),
			strconv.Itoa(int(t.Month())),
			strconv.Itoa(t.Day()),
			strconv.Itoa(t.Hour()),
		}
		for _, c := range domain.MeasurementColumns() {
			if c == domain.WSPM {
				row = append(row, windDirections[rng.IntN(len(windDirections))])
			}
			// Keep the first day complete so every station has a usable window.
			if h >= 24 && rng.Float64() < opts.missing {
				row = append(row, "NA")
				continue
			}
			row = append(row, strconv.FormatFloat(math.Round(values[c]*10)/10, 'f', -1, 64))
		}
		row = append(row, station)
		records = append(records, row)
	}
	return records
}

func writeCSV(path string, records [][]string) error {
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return df.Err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := df.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
