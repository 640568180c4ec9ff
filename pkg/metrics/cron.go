package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks sweep, payout and retention runs by job name. A nil
// receiver drops every observation.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastOK   *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron job metrics on reg. A nil reg yields
// unregistered no-op metrics.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_cron_job_duration_seconds",
			Help:    "Duration of settlement cron jobs in seconds.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_cron_job_runs_total",
			Help: "Settlement cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		lastOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "settlement_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.duration, m.runs, m.lastOK)
	return m
}

// ObserveRun records one job run. A nil err counts as success.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error, finishedAt time.Time) {
	if c == nil || c.duration == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastOK.WithLabelValues(job).Set(float64(finishedAt.Unix()))
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
