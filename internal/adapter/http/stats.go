package http

import (
	"net/http"
	"strconv"

	"github.com/couchcryptid/air-quality-forecast/internal/analytics"
	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

type stationResponse struct {
	Name      string     `json:"name"`
	Geo       domain.Geo `json:"geo"`
	InDataset bool       `json:"in_dataset"`
}

type yearsResponse struct {
	Years  []int                      `json:"years"`
	Bounds analytics.PredictionBounds `json:"prediction_bounds"`
}

// filteredRows returns the dataset rows for the optional ?year= filter.
func (s *Server) filteredRows(r *http.Request) ([]domain.Observation, error) {
	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 0 {
			return nil, badRequestError{msg: "year must be a non-negative integer"}
		}
		year = y
	}
	ds, err := s.forecaster.Dataset()
	if err != nil {
		return nil, err
	}
	return ds.FilterYear(year), nil
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	ds, err := s.forecaster.Dataset()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loaded := make(map[string]bool)
	for _, name := range ds.Stations() {
		loaded[name] = true
	}
	registry := s.forecaster.Registry()
	var out []stationResponse
	for _, st := range registry.Stations() {
		out = append(out, stationResponse{Name: st.Name, Geo: st.Geo, InDataset: loaded[st.Name]})
		delete(loaded, st.Name)
	}
	// Stations present in the data but missing from the registry.
	for _, name := range ds.Stations() {
		if loaded[name] {
			out = append(out, stationResponse{Name: name, Geo: registry.Lookup(name), InDataset: true})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	ds, err := s.forecaster.Dataset()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bounds, years := analytics.Bounds(ds)
	writeJSON(w, http.StatusOK, yearsResponse{Years: years, Bounds: bounds})
}

func (s *Server) handleStationMeans(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.StationMeans(rows, s.forecaster.Registry()))
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.MonthlyTrend(rows))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := analytics.Correlation(rows)
	if err != nil {
		// Too few complete rows for this filter; the dataset itself is fine.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": errorBody{Kind: domain.ErrorKind(err), Message: err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("column")
	if name == "" {
		name = domain.PM25.String()
	}
	col, ok := domain.ParseColumn(name)
	if !ok {
		s.writeError(w, r, badRequestError{msg: "unknown column " + strconv.Quote(name)})
		return
	}
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Distribution(rows, col))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.PollutantSummary(rows))
}

func (s *Server) handleAQI(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.AQIDistribution(rows))
}

func (s *Server) handleWHO(w http.ResponseWriter, r *http.Request) {
	rows, err := s.filteredRows(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.WHOExceedance(rows))
}
