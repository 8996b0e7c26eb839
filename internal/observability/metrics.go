package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aq_forecast"

// Metrics holds the Prometheus collectors for loading and forecasting.
type Metrics struct {
	// Dataset metrics.
	DatasetRows       prometheus.Gauge
	DatasetStations   prometheus.Gauge
	UnresolvedMissing *prometheus.GaugeVec // labels: column
	DatasetLoadTime   prometheus.Gauge

	// Forecast metrics.
	Predictions       *prometheus.CounterVec // labels: outcome={ok,<error kind>}
	InferenceDuration prometheus.Histogram
	WindowGaps        prometheus.Histogram
	ModelAvailable    prometheus.Gauge
	PublishErrors     prometheus.Counter

	// Session metrics.
	SessionLookups *prometheus.CounterVec // labels: result={hit,miss,stale}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Observations held in the loaded dataset.",
		}),
		DatasetStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_stations",
			Help:      "Distinct stations in the loaded dataset.",
		}),
		UnresolvedMissing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_unresolved_missing",
			Help:      "Cells still missing after forward fill, by column.",
		}, []string{"column"}),
		DatasetLoadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of the last dataset load.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Forecast requests by outcome.",
		}, []string{"outcome"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model forward pass duration.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		WindowGaps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_gaps",
			Help:      "Calendar gaps inside feature windows used for prediction.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}),
		ModelAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_available",
			Help:      "1 when a model is loaded, 0 otherwise.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_publish_errors_total",
			Help:      "Predictions that could not be published to Kafka.",
		}),
		SessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_result_lookups_total",
			Help:      "Session result reads by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.DatasetRows,
		m.DatasetStations,
		m.UnresolvedMissing,
		m.DatasetLoadTime,
		m.Predictions,
		m.InferenceDuration,
		m.WindowGaps,
		m.ModelAvailable,
		m.PublishErrors,
		m.SessionLookups,
	}
}
