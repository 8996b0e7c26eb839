// Package stationfile reads a station registry from YAML:
//
//	stations:
//	  - name: Dongsi
//	    lat: 39.929
//	    lon: 116.417
package stationfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"gopkg.in/yaml.v2"
)

type file struct {
	Stations []entry `yaml:"stations"`
}

type entry struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Load reads path into a registry. An empty path returns the built-in
// twelve PRSA stations.
func Load(path string) (*domain.StationRegistry, error) {
	if path == "" {
		return domain.NewStationRegistry(domain.DefaultStations()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}
	stations, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewStationRegistry(stations), nil
}

// Parse decodes and validates the YAML document.
func Parse(data []byte) ([]domain.Station, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stations: %w", err)
	}
	if len(f.Stations) == 0 {
		return nil, errors.New("no stations defined")
	}

	seen := make(map[string]bool, len(f.Stations))
	out := make([]domain.Station, 0, len(f.Stations))
	for i, e := range f.Stations {
		switch {
		case e.Name == "":
			return nil, fmt.Errorf("station at index %d has no name", i)
		case seen[e.Name]:
			return nil, fmt.Errorf("station %q defined twice", e.Name)
		case e.Lat < -90 || e.Lat > 90 || e.Lon < -180 || e.Lon > 180:
			return nil, fmt.Errorf("station %q has invalid coordinates", e.Name)
		}
		seen[e.Name] = true
		out = append(out, domain.Station{Name: e.Name, Geo: domain.Geo{Lat: e.Lat, Lon: e.Lon}})
	}
	return out, nil
}
