package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// Teacher is the role profile of a TEACHER user.
type Teacher struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// Parent is the role profile of a PARENT user. Status flips to ARRIVED on enqueue.
type Parent struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	User        User               `gorm:"foreignKey:UserID" json:"user"`
	Status      enums.ParentStatus `gorm:"column:status;type:parent_status;not null;default:NOT_ARRIVED" json:"status"`
	ArrivalTime *time.Time         `gorm:"column:arrival_time" json:"arrivalTime"`
	Students    []Student          `gorm:"many2many:student_parents;joinForeignKey:ParentID;joinReferences:StudentID" json:"students,omitempty"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// Dismisser is the role profile of carline staff.
type Dismisser struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
