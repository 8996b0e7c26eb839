package domain

import "sort"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BeijingCenter is used to place stations missing from the registry.
var BeijingCenter = Geo{Lat: 40.0, Lon: 116.4}

// Station is a named monitoring site.
type Station struct {
	Name string `json:"name"`
	Geo  Geo    `json:"geo"`
}

// StationRegistry maps station names to coordinates. It is read-only after
// construction.
type StationRegistry struct {
	byName map[string]Geo
}

// NewStationRegistry copies the given stations into a registry.
func NewStationRegistry(stations []Station) *StationRegistry {
	r := &StationRegistry{byName: make(map[string]Geo, len(stations))}
	for _, s := range stations {
		r.byName[s.Name] = s.Geo
	}
	return r
}

// DefaultStations returns the twelve PRSA monitoring sites.
func DefaultStations() []Station {
	return []Station{
		{Name: "Aotizhongxin", Geo: Geo{Lat: 39.982, Lon: 116.397}},
		{Name: "Changping", Geo: Geo{Lat: 40.217, Lon: 116.230}},
		{Name: "Dingling", Geo: Geo{Lat: 40.292, Lon: 116.220}},
		{Name: "Dongsi", Geo: Geo{Lat: 39.929, Lon: 116.417}},
		{Name: "Guanyuan", Geo: Geo{Lat: 39.929, Lon: 116.339}},
		{Name: "Gucheng", Geo: Geo{Lat: 39.914, Lon: 116.184}},
		{Name: "Huairou", Geo: Geo{Lat: 40.328, Lon: 116.628}},
		{Name: "Nongzhanguan", Geo: Geo{Lat: 39.937, Lon: 116.461}},
		{Name: "Shunyi", Geo: Geo{Lat: 40.127, Lon: 116.655}},
		{Name: "Tiantan", Geo: Geo{Lat: 39.886, Lon: 116.407}},
		{Name: "Wanliu", Geo: Geo{Lat: 39.987, Lon: 116.287}},
		{Name: "Wanshouxigong", Geo: Geo{Lat: 39.878, Lon: 116.352}},
	}
}

// Lookup returns the coordinates of a station, falling back to BeijingCenter.
func (r *StationRegistry) Lookup(name string) Geo {
	if g, ok := r.byName[name]; ok {
		return g
	}
	return BeijingCenter
}

// Known reports whether the station is registered.
func (r *StationRegistry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Stations lists registered stations sorted by name.
func (r *StationRegistry) Stations() []Station {
	out := make([]Station, 0, len(r.byName))
	for name, g := range r.byName {
		out = append(out, Station{Name: name, Geo: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
