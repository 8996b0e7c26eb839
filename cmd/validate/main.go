// Command validate runs integrity checks over a directory of PRSA CSV files
// before it is served: every file parses, no (station, hour) pair repeats,
// stations are known to the registry, and per-station coverage and gaps are
// reported.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock [-stations stations.yaml] [-strict]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/adapter/csvdir"
	"github.com/couchcryptid/air-quality-forecast/internal/adapter/stationfile"
	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// stationCoverage summarizes one station series.
type stationCoverage struct {
	station  string
	rows     int
	first    time.Time
	last     time.Time
	gaps     int
	gapHours int
}

func main() {
	dir := flag.String("dir", "", "directory containing PRSA CSV files (searched recursively)")
	stationsFile := flag.String("stations", "", "optional stations YAML file")
	strict := flag.Bool("strict", false, "treat calendar gaps and unresolved missing values as errors")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*dir, *stationsFile, *strict))
}

func run(dir, stationsFile string, strict bool) int {
	fmt.Println("=== PRSA Dataset Integrity Validation ===")
	fmt.Println()

	registry, err := stationfile.Load(stationsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load stations: %v\n", err)
		return 1
	}

	src := csvdir.NewSource(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	files, err := src.Files()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list files: %v\n", err)
		return 1
	}

	schema, rows := validateSchema(files)
	phases := []*phase{
		schema,
		validateDuplicates(rows),
		validateStations(rows, registry),
	}
	coverage, fill := validateCoverage(rows, strict)
	phases = append(phases, coverage, fill)

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Files: %d, rows: %d\n", len(files), len(rows))

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Schema ──
// Every file must carry the required columns and integer time fields.

func validateSchema(files []string) (*phase, []domain.Observation) {
	p := &phase{name: "Phase 1: Schema"}
	if len(files) == 0 {
		p.errorf("no CSV files found")
		return p, nil
	}
	var rows []domain.Observation
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		obs, err := csvdir.Parse(f, path)
		_ = f.Close()
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		p.notef("%s: %d rows", path, len(obs))
		rows = append(rows, obs...)
	}
	return p, rows
}

// ── Phase 2: Duplicates ──
// A (station, hour) pair may appear once across all files.

func validateDuplicates(rows []domain.Observation) *phase {
	p := &phase{name: "Phase 2: Duplicate timestamps"}
	type key struct {
		station string
		t       time.Time
	}
	seen := make(map[key]int, len(rows))
	for _, o := range rows {
		seen[key{o.Station, o.Time}]++
	}
	for k, n := range seen {
		if n > 1 {
			p.errorf("%s at %s appears %d times", k.station, k.t.Format(time.DateTime), n)
		}
	}
	slices.Sort(p.errors)
	return p
}

// ── Phase 3: Stations ──
// Stations outside the registry still load but are placed at the city centre.

func validateStations(rows []domain.Observation, registry *domain.StationRegistry) *phase {
	p := &phase{name: "Phase 3: Station registry"}
	names := make(map[string]struct{})
	for _, o := range rows {
		names[o.Station] = struct{}{}
	}
	for _, name := range slices.Sorted(maps.Keys(names)) {
		if name == "" {
			p.errorf("rows with an empty station name")
			continue
		}
		if !registry.Known(name) {
			p.errorf("station %q is not in the registry", name)
		}
	}
	return p
}

// ── Phases 4 and 5: Coverage and forward fill ──
// Built on the same dataset the service would serve.

func validateCoverage(rows []domain.Observation, strict bool) (*phase, *phase) {
	coverage := &phase{name: "Phase 4: Calendar coverage"}
	fill := &phase{name: "Phase 5: Missing values"}

	raw := make(map[string]int)
	for _, o := range rows {
		for _, c := range domain.MeasurementColumns() {
			if !o.Valid(c) {
				raw[c.String()]++
			}
		}
	}

	ds, report, err := domain.BuildDataset(slices.Clone(rows))
	if err != nil {
		coverage.errorf("build dataset: %v", err)
		return coverage, fill
	}

	for _, st := range ds.Stations() {
		series, _ := ds.Series(st)
		c := summarize(st, series)
		coverage.notef("%-14s %6d rows  %s .. %s  gaps=%d (%d hours)", c.station, c.rows,
			c.first.Format(time.DateTime), c.last.Format(time.DateTime), c.gaps, c.gapHours)
		if strict && c.gaps > 0 {
			coverage.errorf("%s has %d calendar gaps", c.station, c.gaps)
		}
		if c.rows <= domain.WindowSize {
			coverage.errorf("%s has %d rows, no target has a full window", c.station, c.rows)
		}
	}

	for _, c := range domain.MeasurementColumns() {
		name := c.String()
		if raw[name] == 0 {
			continue
		}
		fill.notef("%-6s missing=%d unresolved=%d", name, raw[name], report.Unresolved[name])
		if strict && report.Unresolved[name] > 0 {
			fill.errorf("%s has %d cells forward fill cannot resolve", name, report.Unresolved[name])
		}
	}
	fill.notef("filled %d cells", report.Filled)
	return coverage, fill
}

func summarize(station string, series []domain.Observation) stationCoverage {
	c := stationCoverage{
		station: station,
		rows:    len(series),
		first:   series[0].Time,
		last:    series[len(series)-1].Time,
	}
	for i := 1; i < len(series); i++ {
		step := series[i].Time.Sub(series[i-1].Time)
		if step != time.Hour {
			c.gaps++
			c.gapHours += int(step/time.Hour) - 1
		}
	}
	return c
}

