package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Forecaster serves the dataset views and one-shot predictions.
type Forecaster interface {
	ReadinessChecker
	Dataset() (*domain.Dataset, error)
	Registry() *domain.StationRegistry
	Predict(ctx context.Context, sel domain.Selection) (domain.Prediction, error)
}

// SessionService drives per-client prediction sessions.
type SessionService interface {
	Create(ctx context.Context) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Select(ctx context.Context, id string, sel domain.Selection) (domain.Session, error)
	Predict(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// ModelManager reports and reloads the forecasting model.
type ModelManager interface {
	Status() domain.ModelStatus
	Reload(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and the forecast API.
type Server struct {
	httpServer *http.Server
	forecaster Forecaster
	sessions   SessionService
	models     ModelManager
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the operational routes (/healthz,
// /readyz, /metrics) and the /api/v1 routes.
func NewServer(addr string, f Forecaster, sessions SessionService, models ModelManager, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecaster: f,
		sessions:   sessions,
		models:     models,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/stations", s.handleStations)
	mux.HandleFunc("GET /api/v1/years", s.handleYears)
	mux.HandleFunc("GET /api/v1/stats/stations", s.handleStationMeans)
	mux.HandleFunc("GET /api/v1/stats/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/v1/stats/correlation", s.handleCorrelation)
	mux.HandleFunc("GET /api/v1/stats/distribution", s.handleDistribution)
	mux.HandleFunc("GET /api/v1/stats/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/stats/aqi", s.handleAQI)
	mux.HandleFunc("GET /api/v1/stats/who", s.handleWHO)

	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/selection", s.handleSelect)
	mux.HandleFunc("POST /api/v1/sessions/{id}/predict", s.handleSessionPredict)
	mux.HandleFunc("GET /api/v1/predict", s.handlePredict)

	mux.HandleFunc("GET /api/v1/model", s.handleModelStatus)
	mux.HandleFunc("POST /api/v1/model/reload", s.handleModelReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady gates on the dataset only. The model state is reported so an
// operator can see a missing model without the pod being pulled.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	model := s.models.Status()
	if err := s.forecaster.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"error":  err.Error(),
			"model":  model,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "model": model})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
