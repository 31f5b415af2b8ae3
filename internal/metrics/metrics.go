// Package metrics is an additive Prometheus enrichment: job submissions,
// terminal outcomes, and attempt outcomes by provider and attempt status,
// exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the process-wide counters against their own registry
// rather than prometheus's global default one, so a process that builds
// more than one Metrics (every test that builds its own service context, a
// second daemon instance in the same binary) never hits a
// duplicate-registration panic.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsSucceeded prometheus.Counter
	JobsSpecOnly  prometheus.Counter
	AttemptsTotal *prometheus.CounterVec
	QueueDepth    prometheus.Gauge

	registry *prometheus.Registry
}

// New builds and registers a Metrics bundle against a fresh registry.
func New() *Metrics {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horus_jobs_submitted_total",
			Help: "Total number of jobs submitted.",
		}),
		JobsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horus_jobs_succeeded_total",
			Help: "Total number of jobs that succeeded against a real provider.",
		}),
		JobsSpecOnly: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horus_jobs_spec_only_total",
			Help: "Total number of jobs that terminated at the spec-only fallback.",
		}),
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horus_attempts_total",
			Help: "Total number of provider attempts, by provider and outcome.",
		}, []string{"provider", "status"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "horus_queue_depth",
			Help: "Current number of jobs buffered in the in-memory queue.",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.JobsSubmitted, m.JobsSucceeded, m.JobsSpecOnly, m.AttemptsTotal, m.QueueDepth)
	return m
}

// Handler serves this bundle's registry, independent of the process-wide
// default registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
