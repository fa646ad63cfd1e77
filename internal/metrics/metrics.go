// Package metrics exposes Prometheus instrumentation for the check engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry so embedding
// processes keep control of what they expose.
type Metrics struct {
	registry *prometheus.Registry

	ChecksTotal      *prometheus.CounterVec
	NewVersionsTotal prometheus.Counter
	PassDuration     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relwatch_checks_total",
			Help: "Project checks performed, by outcome.",
		}, []string{"outcome"}),
		NewVersionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relwatch_new_versions_total",
			Help: "New upstream versions discovered.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relwatch_pass_duration_seconds",
			Help:    "Wall-clock duration of one scheduler pass.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
	m.registry.MustRegister(m.ChecksTotal, m.NewVersionsTotal, m.PassDuration)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
