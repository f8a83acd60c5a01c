package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CronResultSuccess = "success"
	CronResultFailure = "failure"
)

// CronJobMetrics records scheduled job runs. A nil *CronJobMetrics, or one
// built without a registerer, drops everything.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	lockSkips   prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carline_cron_job_runs_total",
			Help: "Cron job executions by result.",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carline_cron_job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "carline_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		lockSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carline_cron_lock_skipped_total",
			Help: "Cycles skipped because another worker held the cron lock.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.lockSkips)
	return m
}

// ObserveRun records one execution of job. A nil err counts as success.
func (m *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, CronResultFailure).Inc()
		return
	}
	m.runs.WithLabelValues(job, CronResultSuccess).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func (m *CronJobMetrics) LockSkipped() {
	if m == nil {
		return
	}
	m.lockSkips.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
