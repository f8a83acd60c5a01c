package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestQueueMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	q := NewQueueMetrics(reg)
	q.IncCreated()
	q.IncCreated()
	q.IncTransition("READY")
	q.IncTransition("DISMISSED")
	q.IncTransition("DISMISSED")
	q.IncTransition("")
	q.AddClosed("end_of_day", 4)
	q.AddClosed("end_of_day", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(q.created))
	require.Equal(t, 2.0, testutil.ToFloat64(q.transitions.WithLabelValues("DISMISSED")))
	require.Equal(t, 1.0, testutil.ToFloat64(q.transitions.WithLabelValues("unknown")))
	require.Equal(t, 4.0, testutil.ToFloat64(q.closed.WithLabelValues("end_of_day")))
	require.Equal(t, 3, testutil.CollectAndCount(q.transitions))
}

func TestQueueMetricsNilSafe(t *testing.T) {
	var q *QueueMetrics
	q.IncCreated()
	q.IncTransition("READY")
	q.AddClosed("all_dismissed", 1)

	NewQueueMetrics(nil).IncCreated()
}
