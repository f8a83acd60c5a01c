package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateQueueEntry  OutboxAggregateType = "queue_entry"
	AggregatePickupEvent OutboxAggregateType = "pickup_event"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateQueueEntry || a == AggregatePickupEvent
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventQueueEntryCreated OutboxEventType = "queue_entry_created"
	EventStudentReady      OutboxEventType = "student_ready"
	EventStudentDismissed  OutboxEventType = "student_dismissed"
	EventQueueEntryClosed  OutboxEventType = "queue_entry_closed"
)

// OutboxEventTypes lists every event type in emission order of a pickup.
var OutboxEventTypes = []OutboxEventType{
	EventQueueEntryCreated,
	EventStudentReady,
	EventStudentDismissed,
	EventQueueEntryClosed,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(OutboxEventTypes, e)
}

// Aggregate is the aggregate an event type is recorded against. Unknown
// types map to "".
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	switch e {
	case EventQueueEntryCreated, EventQueueEntryClosed:
		return AggregateQueueEntry
	case EventStudentReady, EventStudentDismissed:
		return AggregatePickupEvent
	}
	return ""
}
