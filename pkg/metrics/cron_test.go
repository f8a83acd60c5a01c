package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "end-of-day-reset"

	m.ObserveRun(job, 250*time.Millisecond, nil)
	m.ObserveRun(job, time.Second, errors.New("db down"))
	m.ObserveRun(job, 100*time.Millisecond, nil)
	m.LockSkipped()

	require.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(job, CronResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, CronResultFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.lockSkips))
	require.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	hist := findMetric(t, mfs, "carline_cron_job_duration_seconds", job).GetHistogram()
	require.EqualValues(t, 3, hist.GetSampleCount())
	require.InDelta(t, 1.35, hist.GetSampleSum(), 1e-9)
}

func TestCronJobMetricsFailureLeavesLastSuccessUnset(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("outbox-retention", time.Second, errors.New("boom"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		require.NotEqual(t, "carline_cron_job_last_success_timestamp_seconds", mf.GetName())
	}
}

func TestCronJobMetricsLabelsUnnamedJobs(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.ObserveRun("", time.Millisecond, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", CronResultSuccess)))
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	require.Nil(t, m)
	m.ObserveRun("job", time.Second, nil)
	m.LockSkipped()
}

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name, job string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric
				}
			}
		}
	}
	t.Fatalf("metric %s{job=%q} not found", name, job)
	return nil
}
