// Package metrics provides Prometheus metrics for the sitetrack engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	FetchErrorsTotal    *prometheus.CounterVec
	RecordWarningsTotal *prometheus.CounterVec
	GraphFallbacksTotal prometheus.Counter
	AggregationDuration prometheus.Histogram
	RequestsTotal       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitetrack_fetches_total",
				Help: "Backend fetches by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		FetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitetrack_fetch_errors_total",
				Help: "Backend fetch failures by endpoint.",
			},
			[]string{"endpoint"},
		),
		RecordWarningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitetrack_record_warnings_total",
				Help: "Data-integrity warnings by kind (malformed_record, self_dependency).",
			},
			[]string{"kind"},
		),
		GraphFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sitetrack_graph_fallbacks_total",
				Help: "Dependency graphs reconstructed because no chart was available.",
			},
		),
		AggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitetrack_aggregation_duration_seconds",
				Help:    "Duration of per-project dashboard aggregation.",
				Buckets: prometheus.DefBuckets,
			},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitetrack_requests_total",
				Help: "HTTP facade requests by route and status.",
			},
			[]string{"route", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.FetchesTotal)
	reg.MustRegister(m.FetchErrorsTotal)
	reg.MustRegister(m.RecordWarningsTotal)
	reg.MustRegister(m.GraphFallbacksTotal)
	reg.MustRegister(m.AggregationDuration)
	reg.MustRegister(m.RequestsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch increments the fetch counter.
func (m *Metrics) RecordFetch(endpoint, outcome string) {
	m.FetchesTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordFetchError increments the fetch failure counter.
func (m *Metrics) RecordFetchError(endpoint string) {
	m.FetchErrorsTotal.WithLabelValues(endpoint).Inc()
}

// RecordWarning increments the data-integrity warning counter.
func (m *Metrics) RecordWarning(kind string) {
	m.RecordWarningsTotal.WithLabelValues(kind).Inc()
}

// RecordGraphFallback increments the graph fallback counter.
func (m *Metrics) RecordGraphFallback() {
	m.GraphFallbacksTotal.Inc()
}

// ObserveAggregation records one aggregation pass duration.
func (m *Metrics) ObserveAggregation(seconds float64) {
	m.AggregationDuration.Observe(seconds)
}

// RecordRequest increments the HTTP request counter.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}
