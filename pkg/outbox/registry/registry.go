// Package registry maps outbox rows to their typed payloads and delivery
// targets.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
	"github.com/angelmondragon/carline-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() payloads.QueueEntryRef
}

// ResolvedEvent is a decoded outbox row ready for a sink.
type ResolvedEvent struct {
	Descriptor   EventDescriptor
	Envelope     outbox.Envelope
	Payload      payloads.QueueEntryRef
	QueueEntryID uuid.UUID
	Channel      string
}

type EventRegistry struct {
	entries       map[enums.OutboxEventType]EventDescriptor
	channelPrefix string
}

// NonRetryableError marks a row that can never be delivered as stored. The
// publisher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err, or anything it wraps, is a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// payloadOf builds a factory returning a fresh *T.
func payloadOf[T any, P interface {
	*T
	payloads.QueueEntryRef
}]() func() payloads.QueueEntryRef {
	return func() payloads.QueueEntryRef { return P(new(T)) }
}

// NewEventRegistry registers every carline event on the queue topic. Redis
// channels are "<prefix>:<queueEntryId>".
func NewEventRegistry(pubsubCfg config.PubSubConfig, eventsCfg config.EventsConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(pubsubCfg.QueueTopic)
	if topic == "" {
		return nil, fmt.Errorf("queue topic is required")
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(eventsCfg.ChannelPrefix), ":")
	if prefix == "" {
		return nil, fmt.Errorf("event channel prefix is required")
	}

	factories := map[enums.OutboxEventType]func() payloads.QueueEntryRef{
		enums.EventQueueEntryCreated: payloadOf[payloads.QueueEntryCreatedEvent](),
		enums.EventStudentReady:      payloadOf[payloads.StudentReadyEvent](),
		enums.EventStudentDismissed:  payloadOf[payloads.StudentDismissedEvent](),
		enums.EventQueueEntryClosed:  payloadOf[payloads.QueueEntryClosedEvent](),
	}
	reg := &EventRegistry{
		entries:       make(map[enums.OutboxEventType]EventDescriptor, len(factories)),
		channelPrefix: prefix,
	}
	for _, et := range enums.OutboxEventTypes {
		factory, ok := factories[et]
		if !ok {
			return nil, fmt.Errorf("no payload type registered for %s", et)
		}
		reg.entries[et] = EventDescriptor{
			EventType:      et,
			AggregateType:  et.Aggregate(),
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

// ChannelFor returns the channel dashboards subscribe to for one queue entry.
func (r *EventRegistry) ChannelFor(queueEntryID uuid.UUID) string {
	return r.channelPrefix + ":" + queueEntryID.String()
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable: the stored row will not change between attempts.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("missing aggregate_id")
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, nonRetryable("%s: %w", event.EventType, err)
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	entryID := payload.QueueEntry()
	if entryID == uuid.Nil {
		return nil, nonRetryable("%s payload missing queueEntryId", event.EventType)
	}

	return &ResolvedEvent{
		Descriptor:   desc,
		Envelope:     envelope,
		Payload:      payload,
		QueueEntryID: entryID,
		Channel:      r.ChannelFor(entryID),
	}, nil
}
