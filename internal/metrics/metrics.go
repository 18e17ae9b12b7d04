// Package metrics exposes fleet health and poller activity to Prometheus.
// Every Metrics value owns its registry, so tests and embedders never
// collide on the default one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soltixdb/rediswatch/internal/poller"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// Poll cycle duration buckets (in seconds)
var cycleBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// Metrics bundles the fleet collector with the poller's own counters
type Metrics struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	collections   *prometheus.CounterVec
}

// New creates the metrics registry for reg. Go runtime and process
// collectors are included.
func New(reg *registry.Registry) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Completed poll cycles",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one poll cycle",
			Buckets:   cycleBuckets,
		}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "collections_total",
			Help:      "Collections by outcome: ok, failed or skipped",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		NewFleetCollector(reg),
		m.cycles,
		m.cycleDuration,
		m.collections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle records one finished poll cycle. Pass it to Poller.OnCycle.
func (m *Metrics) ObserveCycle(stats poller.CycleStats) {
	m.cycles.Inc()
	m.cycleDuration.Observe(stats.Duration.Seconds())
	m.collections.WithLabelValues("ok").Add(float64(stats.Polled - stats.Failed))
	m.collections.WithLabelValues("failed").Add(float64(stats.Failed))
	m.collections.WithLabelValues("skipped").Add(float64(stats.Skipped))
}

// Gatherer returns the underlying registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
