// Package metrics collects job lifecycle and simulation throughput
// metrics and exposes them in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service's Prometheus metrics on a dedicated
// registry so tests can create collectors without global registration
// conflicts.
type Collector struct {
	reg *prometheus.Registry

	JobsCreated   prometheus.Counter
	JobsStarted   prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsCancelled prometheus.Counter

	JobsProcessing prometheus.Gauge
	Iterations     prometheus.Counter
	JobDuration    prometheus.Histogram
}

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		JobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_jobs_created_total",
			Help: "Jobs created by image upload.",
		}),
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_jobs_started_total",
			Help: "Jobs that entered processing.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_jobs_completed_total",
			Help: "Jobs that finished with a result image.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_jobs_failed_total",
			Help: "Jobs that ended in failure, cancellations included.",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_jobs_cancelled_total",
			Help: "Jobs cancelled by request.",
		}),
		JobsProcessing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "linedraw_jobs_processing",
			Help: "Jobs currently running their step loop.",
		}),
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linedraw_simulation_iterations_total",
			Help: "Simulation steps executed across all jobs.",
		}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linedraw_job_duration_seconds",
			Help:    "Wall-clock duration of finished jobs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	c.reg.MustRegister(
		c.JobsCreated, c.JobsStarted, c.JobsCompleted, c.JobsFailed,
		c.JobsCancelled, c.JobsProcessing, c.Iterations, c.JobDuration,
	)
	return c
}

// Handler returns the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
