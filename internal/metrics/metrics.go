package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "demandcast"

// Metrics holds the forecasting counters and histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ForecastsTotal   *prometheus.CounterVec
	ForecastDuration *prometheus.HistogramVec
	FallbacksTotal   *prometheus.CounterVec
	HistoryPeriods   *prometheus.HistogramVec
	CoercedRows      *prometheus.CounterVec
	JobsTotal        *prometheus.CounterVec
}

// New creates all metrics on a private registry, along with the Go runtime
// and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Forecast runs by requested method, grain and outcome code",
			},
			[]string{"method", "grain", "code"},
		),
		ForecastDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_duration_seconds",
				Help:      "Time spent in a single forecast run",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"method"},
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Strategy fallbacks by requested and effective method",
			},
			[]string{"requested", "effective"},
		),
		HistoryPeriods: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_periods",
				Help:      "Number of aggregated periods fed to a strategy",
				Buckets:   []float64{4, 7, 14, 30, 60, 120, 365, 730},
			},
			[]string{"grain"},
		),
		CoercedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coerced_rows_total",
				Help:      "Input rows altered or dropped during cleaning, by kind",
			},
			[]string{"kind"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Queue forecast jobs handled by outcome",
			},
			[]string{"status"},
		),
	}
}

// Registry exposes the underlying registry for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the registry in exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveForecast records one orchestrator run
func (m *Metrics) ObserveForecast(method, grain, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ForecastsTotal.WithLabelValues(method, grain, code).Inc()
	m.ForecastDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveFallback records a strategy substitution
func (m *Metrics) ObserveFallback(requested, effective string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(requested, effective).Inc()
}

// ObserveHistory records the aggregated series length
func (m *Metrics) ObserveHistory(grain string, periods int) {
	if m == nil {
		return
	}
	m.HistoryPeriods.WithLabelValues(grain).Observe(float64(periods))
}

// AddCoerced adds n rows of the given coercion kind
func (m *Metrics) AddCoerced(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CoercedRows.WithLabelValues(kind).Add(float64(n))
}

// ObserveJob records a processed queue job
func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
}
