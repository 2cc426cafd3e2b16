package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records background job outcomes for Prometheus.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	marked   *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on reg. A nil registerer yields
// metrics that record nothing.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_job_duration_seconds",
		Help:    "Duration of ledger background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_job_success_total",
		Help: "Successful ledger background job runs.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_job_failure_total",
		Help: "Failed ledger background job runs.",
	}, []string{"job"})
	marked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_job_items_total",
		Help: "Items processed by ledger background jobs, by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, success, failure, marked)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		marked:   marked,
	}
}

// ObserveDuration records the duration for the named job.
func (m *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (m *JobMetrics) IncSuccess(job string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (m *JobMetrics) IncFailure(job string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddItems adds n items with the given outcome for the named job.
func (m *JobMetrics) AddItems(job, outcome string, n int) {
	if m == nil || m.marked == nil || n <= 0 {
		return
	}
	m.marked.WithLabelValues(normalizeLabel(job), outcome).Add(float64(n))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
