// Package metrics owns the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "library"

// Lookup outcomes.
const (
	OutcomeHit     = "hit"
	OutcomePartial = "partial"
	OutcomeMiss    = "miss"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	metadataLookups  *prometheus.CounterVec
	catalogMutations *prometheus.CounterVec
}

// New builds a private registry with the process/go collectors and the
// library's own series.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		metadataLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_lookups_total",
			Help:      "Metadata provider lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		catalogMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_mutations_total",
			Help:      "Catalog changes written to the transaction log, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.metadataLookups, m.catalogMutations)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) MetadataLookup(provider, outcome string) {
	if m == nil {
		return
	}
	m.metadataLookups.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) CatalogMutation(action string) {
	if m == nil {
		return
	}
	m.catalogMutations.WithLabelValues(action).Inc()
}
