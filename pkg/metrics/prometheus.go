package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts       *prometheus.CounterVec
	forecastLatency *prometheus.HistogramVec
	horizon         prometheus.Histogram
	predictLatency  *prometheus.HistogramVec
	predictRows     *prometheus.CounterVec
	predictErrors   *prometheus.CounterVec
	cache           *prometheus.CounterVec
	lastRevenue     *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a recorder registered on reg. Pass
// prometheus.DefaultRegisterer to expose it on /metrics.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shrimpcast_forecasts_total",
				Help: "Forecasts computed, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		forecastLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shrimpcast_forecast_duration_seconds",
				Help:    "End-to-end forecast duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"source"},
		),
		horizon: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shrimpcast_forecast_horizon_days",
				Help:    "Requested forecast horizon in days",
				Buckets: []float64{0, 7, 14, 30, 60, 90, 120, 180, 365},
			},
		),
		predictLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shrimpcast_model_predict_duration_seconds",
				Help:    "Model prediction duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		predictRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shrimpcast_model_rows_total",
				Help: "Feature rows scored, by model",
			},
			[]string{"model"},
		),
		predictErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shrimpcast_model_errors_total",
				Help: "Failed predictions, by model",
			},
			[]string{"model"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shrimpcast_forecast_cache_total",
				Help: "Forecast cache lookups by result",
			},
			[]string{"result"},
		),
		lastRevenue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shrimpcast_last_final_revenue",
				Help: "Final revenue of the most recent forecast",
			},
			[]string{"currency"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shrimpcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordForecast(source, outcome string, days int, seconds float64) {
	r.forecasts.WithLabelValues(source, outcome).Inc()
	r.forecastLatency.WithLabelValues(source).Observe(seconds)
	if outcome == "ok" {
		r.horizon.Observe(float64(days))
	}
}

func (r *Recorder) RecordPredict(model string, rows int, seconds float64, err error) {
	r.predictLatency.WithLabelValues(model).Observe(seconds)
	if err != nil {
		r.predictErrors.WithLabelValues(model).Inc()
		return
	}
	r.predictRows.WithLabelValues(model).Add(float64(rows))
}

func (r *Recorder) RecordCache(hit bool) {
	if hit {
		r.cache.WithLabelValues("hit").Inc()
		return
	}
	r.cache.WithLabelValues("miss").Inc()
}

func (r *Recorder) RecordRevenue(currency string, revenue float64) {
	r.lastRevenue.WithLabelValues(currency).Set(revenue)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordForecast(string, string, int, float64) {}
func (Nop) RecordPredict(string, int, float64, error)   {}
func (Nop) RecordCache(bool)                            {}
func (Nop) RecordRevenue(string, float64)               {}
func (Nop) RecordError(string)                          {}
