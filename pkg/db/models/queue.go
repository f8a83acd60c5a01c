package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// CarlineQueueEntry is one parent's arrival in the carline.
// Position is unique among entries whose ProcessedAt is still nil.
type CarlineQueueEntry struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ParentID     uuid.UUID            `gorm:"column:parent_id;type:uuid;not null;index" json:"parentId"`
	Parent       *Parent              `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Position     int                  `gorm:"column:position;not null" json:"position"`
	DismisserID  uuid.UUID            `gorm:"column:dismisser_id;type:uuid;not null" json:"dismisserId"`
	ProcessedAt  *time.Time           `gorm:"column:processed_at" json:"processedAt"`
	Students     []QueueEntryStudent  `gorm:"foreignKey:QueueEntryID" json:"students"`
	PickupEvents []StudentPickupEvent `gorm:"foreignKey:QueueEntryID" json:"studentPickupEvents"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// IsOpen reports whether the entry is still waiting on dismissals.
func (e CarlineQueueEntry) IsOpen() bool {
	return e.ProcessedAt == nil
}

// QueueEntryStudent links a requested student to a queue entry.
type QueueEntryStudent struct {
	QueueEntryID uuid.UUID `gorm:"column:queue_entry_id;type:uuid;primaryKey" json:"queueEntryId"`
	StudentID    uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"studentId"`
	Student      *Student  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// StudentPickupEvent tracks one student's pickup for one queue entry.
type StudentPickupEvent struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StudentID         uuid.UUID              `gorm:"column:student_id;type:uuid;not null;index" json:"studentId"`
	Student           *Student               `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ParentID          uuid.UUID              `gorm:"column:parent_id;type:uuid;not null" json:"parentId"`
	Parent            *Parent                `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	QueueEntryID      uuid.UUID              `gorm:"column:queue_entry_id;type:uuid;not null;index" json:"queueEntryId"`
	QueueEntry        *CarlineQueueEntry     `gorm:"foreignKey:QueueEntryID" json:"queueEntry,omitempty"`
	Status            enums.PickupStatus     `gorm:"column:status;type:pickup_status;not null;default:QUEUED" json:"status"`
	NotifiedTeacherAt *time.Time             `gorm:"column:notified_teacher_at" json:"notifiedTeacherAt"`
	DismissedAt       *time.Time             `gorm:"column:dismissed_at" json:"dismissedAt"`
	DismissedBy       *uuid.UUID             `gorm:"column:dismissed_by;type:uuid" json:"dismissedBy"`
	Dismisser         *Dismisser             `gorm:"foreignKey:DismissedBy" json:"dismisser,omitempty"`
	DismissalMethod   *enums.DismissalMethod `gorm:"column:dismissal_method" json:"dismissalMethod"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// InOpenEntry reports whether the event's queue entry is loaded and still
// open. Events left behind on a closed entry are history, not work.
func (e StudentPickupEvent) InOpenEntry() bool {
	return e.QueueEntry != nil && e.QueueEntry.ProcessedAt == nil
}
