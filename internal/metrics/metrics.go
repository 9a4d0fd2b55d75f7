// Package metrics exposes Prometheus counters for the relay and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry so servers and tests never collide on the global
// one.
type Metrics struct {
	Registry *prometheus.Registry

	RelayRequests    *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// New creates and registers all metrics, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RelayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mockmate",
				Subsystem: "relay",
				Name:      "requests_total",
				Help:      "Relay calls by endpoint and outcome (ok or error kind)",
			},
			[]string{"endpoint", "outcome"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mockmate",
				Subsystem: "provider",
				Name:      "call_duration_seconds",
				Help:      "Model provider call duration in seconds, retries included",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mockmate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.Registry.MustRegister(
		m.RelayRequests,
		m.ProviderDuration,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RelayFinished counts one relay call.
func (m *Metrics) RelayFinished(endpoint, outcome string) {
	m.RelayRequests.WithLabelValues(endpoint, outcome).Inc()
}

// ProviderCall records provider latency.
func (m *Metrics) ProviderCall(endpoint string, d time.Duration) {
	m.ProviderDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordHTTP counts one served request. route is the router pattern, not the
// raw path, to keep cardinality bounded.
func (m *Metrics) RecordHTTP(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
