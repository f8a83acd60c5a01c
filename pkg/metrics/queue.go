package metrics

import "github.com/prometheus/client_golang/prometheus"

// QueueMetrics counts carline queue activity.
type QueueMetrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	closed      *prometheus.CounterVec
}

// NewQueueMetrics registers the queue counters. A nil registerer yields a no-op recorder.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "carline_queue_entries_created_total",
		Help: "Queue entries created by dismissers.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carline_pickup_transitions_total",
		Help: "Pickup event transitions by resulting status.",
	}, []string{"status"})
	closed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carline_queue_entries_closed_total",
		Help: "Queue entries closed, by reason.",
	}, []string{"reason"})
	reg.MustRegister(created, transitions, closed)
	return &QueueMetrics{
		created:     created,
		transitions: transitions,
		closed:      closed,
	}
}

func (q *QueueMetrics) IncCreated() {
	if q == nil || q.created == nil {
		return
	}
	q.created.Inc()
}

func (q *QueueMetrics) IncTransition(status string) {
	if q == nil || q.transitions == nil {
		return
	}
	q.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func (q *QueueMetrics) AddClosed(reason string, n int) {
	if q == nil || q.closed == nil || n <= 0 {
		return
	}
	q.closed.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}
