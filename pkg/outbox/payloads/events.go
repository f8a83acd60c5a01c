package payloads

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntryRef is implemented by every carline payload so sinks can key
// messages by queue entry.
type QueueEntryRef interface {
	QueueEntry() uuid.UUID
}

// QueueEntryCreatedEvent signals a parent joined the carline.
type QueueEntryCreatedEvent struct {
	QueueEntryID uuid.UUID   `json:"queueEntryId"`
	ParentID     uuid.UUID   `json:"parentId"`
	DismisserID  uuid.UUID   `json:"dismisserId"`
	Position     int         `json:"position"`
	StudentIDs   []uuid.UUID `json:"studentIds"`
}

func (e QueueEntryCreatedEvent) QueueEntry() uuid.UUID { return e.QueueEntryID }

// StudentReadyEvent is emitted when a teacher releases a student to the carline.
type StudentReadyEvent struct {
	QueueEntryID      uuid.UUID `json:"queueEntryId"`
	PickupEventID     uuid.UUID `json:"pickupEventId"`
	StudentID         uuid.UUID `json:"studentId"`
	TeacherID         uuid.UUID `json:"teacherId"`
	NotifiedTeacherAt time.Time `json:"notifiedTeacherAt"`
}

func (e StudentReadyEvent) QueueEntry() uuid.UUID { return e.QueueEntryID }

// StudentDismissedEvent is emitted when a dismisser hands a student over.
type StudentDismissedEvent struct {
	QueueEntryID  uuid.UUID `json:"queueEntryId"`
	PickupEventID uuid.UUID `json:"pickupEventId"`
	StudentID     uuid.UUID `json:"studentId"`
	DismisserID   uuid.UUID `json:"dismisserId"`
	DismissedAt   time.Time `json:"dismissedAt"`
}

func (e StudentDismissedEvent) QueueEntry() uuid.UUID { return e.QueueEntryID }

const (
	CloseReasonDismissed = "all_dismissed"
	CloseReasonEndOfDay  = "end_of_day"
)

// QueueEntryClosedEvent reports the entry left the open queue.
type QueueEntryClosedEvent struct {
	QueueEntryID uuid.UUID `json:"queueEntryId"`
	ProcessedAt  time.Time `json:"processedAt"`
	Reason       string    `json:"reason"`
}

func (e QueueEntryClosedEvent) QueueEntry() uuid.UUID { return e.QueueEntryID }
