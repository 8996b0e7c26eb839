package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
)

// LoadFunc produces a ready model or an error wrapping ErrModelUnavailable.
type LoadFunc func(ctx context.Context) (domain.Model, error)

// Holder owns the active model. It loads once at startup and again only on
// an explicit Reload; a failed load leaves any previous model in place.
// Holder itself implements domain.Model.
type Holder struct {
	backend string
	source  string
	load    LoadFunc
	logger  *slog.Logger

	mu     sync.RWMutex
	model  domain.Model
	status domain.ModelStatus

	onStatus func(domain.ModelStatus)
	timeout  time.Duration
}

// NewHolder creates an empty holder. Call Reload to load the first model.
func NewHolder(backend, source string, load LoadFunc, logger *slog.Logger) *Holder {
	return &Holder{
		backend: backend,
		source:  source,
		load:    load,
		logger:  logger,
		status:  domain.ModelStatus{Backend: backend, Source: source, Error: "not loaded"},
	}
}

// OnStatus registers a callback invoked after every load attempt.
func (h *Holder) OnStatus(fn func(domain.ModelStatus)) {
	h.mu.Lock()
	h.onStatus = fn
	h.mu.Unlock()
}

// SetTimeout bounds every Predict call. Zero disables the bound.
func (h *Holder) SetTimeout(d time.Duration) {
	h.mu.Lock()
	h.timeout = d
	h.mu.Unlock()
}

// FileLoader loads the LSTM weights at path.
func FileLoader(path string) LoadFunc {
	return func(context.Context) (domain.Model, error) {
		return LoadFile(path)
	}
}

// TFServingLoader checks the remote model is available and returns the client.
func TFServingLoader(c *TFServing) LoadFunc {
	return func(ctx context.Context) (domain.Model, error) {
		if err := c.Ping(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Reload runs the loader and swaps the model in on success.
func (h *Holder) Reload(ctx context.Context) error {
	m, err := h.load(ctx)

	h.mu.Lock()
	if err != nil {
		h.status.Error = err.Error()
		h.logger.Error("model load failed", "backend", h.backend, "source", h.source, "error", err,
			"previous_model_kept", h.model != nil)
	} else {
		h.model = m
		h.status = domain.ModelStatus{
			Backend:   h.backend,
			Source:    h.source,
			Available: true,
			LoadedAt:  domain.Now(),
		}
		h.logger.Info("model loaded", "backend", h.backend, "source", h.source)
	}
	status, cb := h.status, h.onStatus
	h.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	if err != nil {
		return fmt.Errorf("reload model: %w", err)
	}
	return nil
}

// Status reports the current model state.
func (h *Holder) Status() domain.ModelStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Predict delegates to the active model.
func (h *Holder) Predict(ctx context.Context, window [][]float64) (float64, error) {
	h.mu.RLock()
	m, timeout := h.model, h.timeout
	h.mu.RUnlock()
	if m == nil {
		return 0, fmt.Errorf("%w: %s model not loaded from %s", domain.ErrModelUnavailable, h.backend, h.source)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return m.Predict(ctx, window)
}
