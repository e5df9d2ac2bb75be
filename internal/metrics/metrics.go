// Package metrics exposes Prometheus instrumentation for the ensemble
// runner. The collector owns a private registry so tests can assert on it
// without touching global state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the runner's instrumentation.
type Collector struct {
	registry             *prometheus.Registry
	trajectoriesSimulated prometheus.Counter
	collapsesDetected     prometheus.Counter
	trajectoryDuration    prometheus.Histogram
}

// NewCollector creates a new Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	return &Collector{
		registry: registry,
		trajectoriesSimulated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "walletsim_trajectories_simulated_total",
			Help: "Total number of trajectories simulated",
		}),
		collapsesDetected: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "walletsim_collapses_detected_total",
			Help: "Total number of simulated trajectories that collapsed",
		}),
		trajectoryDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "walletsim_trajectory_duration_seconds",
			Help:    "Wall time to simulate one trajectory",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// TrajectorySimulated records one completed trajectory and its wall time.
func (c *Collector) TrajectorySimulated(seconds float64) {
	c.trajectoriesSimulated.Inc()
	c.trajectoryDuration.Observe(seconds)
}

// CollapseDetected records one collapsed trajectory.
func (c *Collector) CollapseDetected() {
	c.collapsesDetected.Inc()
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
