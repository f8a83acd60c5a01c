package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox delivery outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks what the outbox publisher did with each row.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batch      prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics. A nil registerer yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carline_outbox_deliveries_total",
		Help: "Outbox rows handled by the publisher, by sink and outcome.",
	}, []string{"sink", "outcome"})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carline_outbox_batch_duration_seconds",
		Help:    "Time spent draining one outbox batch.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(deliveries, batch)
	return &OutboxMetrics{deliveries: deliveries, batch: batch}
}

func (o *OutboxMetrics) AddDeliveries(sink, outcome string, n int) {
	if o == nil || o.deliveries == nil || n <= 0 {
		return
	}
	o.deliveries.WithLabelValues(normalizeLabel(sink), normalizeLabel(outcome)).Add(float64(n))
}

func (o *OutboxMetrics) ObserveBatch(d time.Duration) {
	if o == nil || o.batch == nil {
		return
	}
	o.batch.Observe(d.Seconds())
}
