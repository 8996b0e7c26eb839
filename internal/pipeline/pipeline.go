package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/couchcryptid/air-quality-forecast/internal/observability"
	"github.com/google/uuid"
)

// Source reads the raw observation corpus.
type Source interface {
	Load(ctx context.Context) ([]domain.Observation, error)
}

// PredictionPublisher emits successful predictions downstream.
type PredictionPublisher interface {
	Publish(ctx context.Context, p domain.Prediction) error
}

// Prepared is a validated window with its fitted scaler, ready for inference.
type Prepared struct {
	Window domain.Window
	Scaler domain.MinMaxScaler
}

// Forecaster runs the prediction flow against the loaded dataset:
// series, window, scaler fit, model, inverse transform.
type Forecaster struct {
	dataset   atomic.Pointer[domain.Dataset]
	registry  *domain.StationRegistry
	model     domain.Model
	publisher PredictionPublisher
	opts      domain.WindowOptions
	logger    *slog.Logger
	metrics   *observability.Metrics
	newID     func() string
}

// NewForecaster creates a Forecaster. publisher may be nil.
func NewForecaster(registry *domain.StationRegistry, model domain.Model, publisher PredictionPublisher,
	opts domain.WindowOptions, logger *slog.Logger, metrics *observability.Metrics) *Forecaster {
	return &Forecaster{
		registry:  registry,
		model:     model,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}
}

// LoadDataset reads the source, builds the dataset, and reports forward-fill
// leftovers. A failure here is fatal for the service.
func LoadDataset(ctx context.Context, src Source, logger *slog.Logger, metrics *observability.Metrics) (*domain.Dataset, domain.FillReport, error) {
	start := time.Now()
	rows, err := src.Load(ctx)
	if err != nil {
		return nil, domain.FillReport{}, fmt.Errorf("load dataset: %w", err)
	}
	ds, report, err := domain.BuildDataset(rows)
	if err != nil {
		return nil, domain.FillReport{}, fmt.Errorf("build dataset: %w", err)
	}

	metrics.DatasetRows.Set(float64(ds.Len()))
	metrics.DatasetStations.Set(float64(len(ds.Stations())))
	metrics.DatasetLoadTime.Set(time.Since(start).Seconds())
	for _, c := range domain.MeasurementColumns() {
		n := report.Unresolved[c.String()]
		metrics.UnresolvedMissing.WithLabelValues(c.String()).Set(float64(n))
		if n > 0 {
			logger.Warn("missing values left after forward fill", "column", c.String(), "cells", n)
		}
	}

	first, last := ds.TimeRange()
	logger.Info("dataset loaded",
		"rows", ds.Len(),
		"stations", len(ds.Stations()),
		"from", first.Format(time.DateTime),
		"to", last.Format(time.DateTime),
		"filled", report.Filled,
		"duration", time.Since(start),
	)
	return ds, report, nil
}

// SetDataset installs the dataset; the forecaster becomes ready.
func (f *Forecaster) SetDataset(ds *domain.Dataset) {
	f.dataset.Store(ds)
}

// Dataset returns the loaded dataset or ErrNoDataFound.
func (f *Forecaster) Dataset() (*domain.Dataset, error) {
	ds := f.dataset.Load()
	if ds == nil {
		return nil, fmt.Errorf("%w: dataset not loaded", domain.ErrNoDataFound)
	}
	return ds, nil
}

// Registry returns the station registry.
func (f *Forecaster) Registry() *domain.StationRegistry {
	return f.registry
}

// CheckReadiness returns nil once the dataset is loaded. Model availability
// is reported separately and does not affect readiness.
func (f *Forecaster) CheckReadiness(_ context.Context) error {
	if f.dataset.Load() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Prepare extracts the window for the selection and fits the scaler on the
// station's full history.
func (f *Forecaster) Prepare(sel domain.Selection) (Prepared, error) {
	if err := sel.Validate(); err != nil {
		return Prepared{}, err
	}
	ds, err := f.Dataset()
	if err != nil {
		return Prepared{}, err
	}
	series, err := ds.Series(sel.Station)
	if err != nil {
		return Prepared{}, err
	}
	w, err := domain.ExtractWindow(series, sel.Target(), f.opts)
	if err != nil {
		return Prepared{}, fmt.Errorf("%s: %w", sel.Station, err)
	}
	scaler, err := domain.FitSeries(series)
	if err != nil {
		return Prepared{}, fmt.Errorf("%s: %w", sel.Station, err)
	}
	return Prepared{Window: w, Scaler: scaler}, nil
}

// Infer normalizes the window, runs the model, and denormalizes the output
// with the PM2.5 bounds.
func (f *Forecaster) Infer(ctx context.Context, p Prepared) (domain.Prediction, error) {
	scaled := p.Scaler.Transform(p.Window.Features)
	input := make([][]float64, domain.WindowSize)
	for i := range scaled {
		input[i] = slices.Clone(scaled[i][:])
	}

	start := time.Now()
	out, err := f.model.Predict(ctx, input)
	f.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.Prediction{}, err
	}

	value := p.Scaler.InverseTransform(int(domain.PM25), out)
	pred := domain.NewPrediction(f.newID(), p.Window, f.registry.Lookup(p.Window.Station), p.Scaler, value)
	f.metrics.WindowGaps.Observe(float64(pred.WindowGaps))
	return pred, nil
}

// Predict runs the whole flow for one selection without session state.
func (f *Forecaster) Predict(ctx context.Context, sel domain.Selection) (domain.Prediction, error) {
	prepared, err := f.Prepare(sel)
	if err != nil {
		f.Record(sel, err)
		return domain.Prediction{}, err
	}
	pred, err := f.Infer(ctx, prepared)
	f.Record(sel, err)
	if err != nil {
		return domain.Prediction{}, err
	}
	f.Publish(ctx, pred)
	return pred, nil
}

// Record counts and logs the outcome of one prediction attempt.
func (f *Forecaster) Record(sel domain.Selection, err error) {
	if err == nil {
		f.metrics.Predictions.WithLabelValues("ok").Inc()
		return
	}
	kind := domain.ErrorKind(err)
	f.metrics.Predictions.WithLabelValues(kind).Inc()
	f.logger.Info("prediction failed", "station", sel.Station, "date", sel.Date, "hour", sel.Hour,
		"kind", kind, "error", err)
}

// Publish forwards a prediction to the publisher. Failures are logged and
// counted; they never fail the request.
func (f *Forecaster) Publish(ctx context.Context, p domain.Prediction) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, p); err != nil {
		f.metrics.PublishErrors.Inc()
		f.logger.Warn("publish prediction failed", "id", p.ID, "station", p.Station, "error", err)
	}
}
