// Package jobmetrics instruments background job runs.
package jobmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewMetrics registers the job collectors on registerer, falling back to
// the Prometheus default registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billdesk_jobs_total",
			Help: "Job runs by job and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billdesk_jobs_failures_total",
			Help: "Failed job runs by job.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billdesk_job_duration_seconds",
			Help:    "Job run duration by job.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 30, 120},
		}, []string{"job"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billdesk_job_items_total",
			Help: "Rows or keys processed by job.",
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.items)
	return m
}

// Run executes fn as one run of job. fn reports how many items it touched;
// its error is returned unchanged.
func (m *Metrics) Run(job string, fn func() (int64, error)) error {
	start := time.Now()
	n, err := fn()
	if m == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.failures.WithLabelValues(job).Inc()
	} else if n > 0 {
		m.items.WithLabelValues(job).Add(float64(n))
	}
	m.runs.WithLabelValues(job, status).Inc()
	m.duration.WithLabelValues(job).Observe(time.Since(start).Seconds())
	return err
}
