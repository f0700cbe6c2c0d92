package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction pipeline.
type Metrics struct {
	CyclesConsumed   prometheus.Counter
	BatchesPublished prometheus.Counter
	CycleErrors      prometheus.Counter
	PipelineRunning  prometheus.Gauge

	CycleDuration   prometheus.Histogram
	ScoringDuration prometheus.Histogram

	// Per-unit prediction metrics.
	TierPredictions  *prometheus.CounterVec // labels: tier={normal,alert,suspension}
	Degradations     *prometheus.CounterVec // labels: reason
	PredictionErrors prometheus.Counter

	// Holiday provider metrics.
	HolidayRequests *prometheus.CounterVec // labels: outcome={success,error}
	HolidayCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "cycles_consumed_total",
			Help:      "Total collection cycles read from the source topic.",
		}),
		BatchesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "batches_published_total",
			Help:      "Total prediction batches written to the sink topic.",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "cycle_errors_total",
			Help:      "Total cycles that failed normalization or assembly.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "suspension_forecast",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "suspension_forecast",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete consume-predict-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "suspension_forecast",
			Name:      "scoring_duration_seconds",
			Help:      "Duration of one unit's feature build and model score.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		TierPredictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "tier_predictions_total",
			Help:      "Predictions by resulting risk tier.",
		}, []string{"tier"}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "degradations_total",
			Help:      "Documented data fallbacks applied during feature building, by reason.",
		}, []string{"reason"}),
		PredictionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "prediction_errors_total",
			Help:      "Per-unit prediction failures.",
		}),
		HolidayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "holiday_requests_total",
			Help:      "Holiday API requests by outcome.",
		}, []string{"outcome"}),
		HolidayCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suspension_forecast",
			Name:      "holiday_cache_total",
			Help:      "Holiday calendar cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.CyclesConsumed,
		m.BatchesPublished,
		m.CycleErrors,
		m.PipelineRunning,
		m.CycleDuration,
		m.ScoringDuration,
		m.TierPredictions,
		m.Degradations,
		m.PredictionErrors,
		m.HolidayRequests,
		m.HolidayCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesConsumed:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "cycles_consumed_total"}),
		BatchesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "batches_published_total"}),
		CycleErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "cycle_errors_total"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "suspension_forecast", Name: "pipeline_running"}),
		CycleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "suspension_forecast", Name: "cycle_duration_seconds"}),
		ScoringDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "suspension_forecast", Name: "scoring_duration_seconds"}),
		TierPredictions:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "tier_predictions_total"}, []string{"tier"}),
		Degradations:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "degradations_total"}, []string{"reason"}),
		PredictionErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "prediction_errors_total"}),
		HolidayRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "holiday_requests_total"}, []string{"outcome"}),
		HolidayCache:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "suspension_forecast", Name: "holiday_cache_total"}, []string{"result"}),
	}
}
