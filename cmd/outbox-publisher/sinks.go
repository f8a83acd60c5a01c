package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/outbox/registry"
	"github.com/angelmondragon/carline-backend/pkg/rabbitmq"
)

// discardSink marks rows published without delivering them. Used when no
// transport is configured so the table does not grow unbounded.
type discardSink struct {
	logg *logger.Logger
}

func (discardSink) Name() string { return config.EventSinkNone }

func (discardSink) Ping(context.Context) error { return nil }

func (s discardSink) Publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if s.logg != nil {
		s.logg.Debug(s.logg.WithField(ctx, "outbox_id", event.ID.String()), "outbox event discarded")
	}
	return nil
}

type redisPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, channel string, payload []byte) error
}

// redisSink fans events out on one channel per queue entry.
type redisSink struct {
	client redisPublisher
}

func (redisSink) Name() string { return config.EventSinkRedis }

func (s redisSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s redisSink) Publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if resolved.Channel == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no channel resolved for %s", event.ID))
	}
	return s.client.Publish(ctx, resolved.Channel, event.Payload)
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// pubsubSink publishes to the Pub/Sub topic named by the event descriptor.
type pubsubSink struct {
	client  pubSubClient
	factory publisherFactory

	mu         sync.Mutex
	publishers map[string]publisher
}

func newPubSubSink(client pubSubClient) *pubsubSink {
	sink := &pubsubSink{client: client, publishers: map[string]publisher{}}
	sink.factory = func(topic string) publisher {
		return newGCPPublisher(client.Publisher(topic))
	}
	return sink
}

func (*pubsubSink) Name() string { return config.EventSinkPubSub }

func (s *pubsubSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *pubsubSink) publisherFor(topic string) publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.factory(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

func (s *pubsubSink) Publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        event.Payload,
		Attributes:  messageAttributes(event, resolved),
		OrderingKey: resolved.QueueEntryID.String(),
	}
	result := pub.Publish(ctx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(ctx); err != nil {
		// an ordered publisher pauses the key after a failure; the retry on
		// the next poll must be allowed through
		if resumer, ok := pub.(interface{ ResumePublish(string) }); ok {
			resumer.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}

// Stop flushes and stops every cached topic publisher.
func (s *pubsubSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pub := range s.publishers {
		if stopper, ok := pub.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}
	s.publishers = map[string]publisher{}
}

func messageAttributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	return map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"queue_entry_id": resolved.QueueEntryID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}

type rabbitPublisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// rabbitSink pushes events onto the durable RabbitMQ queue. An open breaker
// surfaces as a retryable failure.
type rabbitSink struct {
	broker rabbitPublisher
}

func (rabbitSink) Name() string { return config.EventSinkRabbitMQ }

func (s rabbitSink) Ping(context.Context) error {
	if s.broker == nil {
		return errors.New("rabbitmq broker not initialized")
	}
	return nil
}

func (s rabbitSink) Publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	return s.broker.Publish(ctx, rabbitmq.Message{
		ID:        resolved.Envelope.EventID,
		Type:      string(event.EventType),
		Body:      event.Payload,
		Timestamp: event.CreatedAt.Unix(),
	})
}
