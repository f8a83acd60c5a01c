package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// Student belongs to exactly one teacher and may be collected by any authorized parent.
type Student struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string               `gorm:"column:name;not null" json:"name"`
	Grade        string               `gorm:"column:grade;not null" json:"grade"`
	TeacherID    uuid.UUID            `gorm:"column:teacher_id;type:uuid;not null;index" json:"teacherId"`
	Teacher      *Teacher             `gorm:"foreignKey:TeacherID" json:"assignedTeacher,omitempty"`
	Status       enums.StudentStatus  `gorm:"column:status;type:student_status;not null;default:AWAITING" json:"status"`
	Parents      []Parent             `gorm:"many2many:student_parents;joinForeignKey:StudentID;joinReferences:ParentID" json:"authorizedParents,omitempty"`
	PickupEvents []StudentPickupEvent `gorm:"foreignKey:StudentID" json:"pickupEvents,omitempty"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// StudentParent authorizes a parent to collect a student.
type StudentParent struct {
	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey" json:"studentId"`
	ParentID  uuid.UUID `gorm:"column:parent_id;type:uuid;primaryKey" json:"parentId"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
