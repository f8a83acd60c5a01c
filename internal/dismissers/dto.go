package dismissers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// ParentSummary is one row of the dismisser's check-in list.
type ParentSummary struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Status      enums.ParentStatus `json:"status"`
	ArrivalTime *time.Time         `json:"arrivalTime"`
	Students    []StudentSummary   `json:"students"`
}

// StudentSummary is an authorized student as shown next to a parent.
type StudentSummary struct {
	ID      uuid.UUID           `json:"id"`
	Name    string              `json:"name"`
	Grade   string              `json:"grade"`
	Status  enums.StudentStatus `json:"status"`
	Teacher string              `json:"teacher"`
}

// EnqueueInput is the validated body of POST /dismisser/queue.
type EnqueueInput struct {
	ParentID   uuid.UUID
	StudentIDs []uuid.UUID
}

// DismissInput is the validated body of POST /dismisser/dismiss.
type DismissInput struct {
	StudentID    uuid.UUID
	QueueEntryID uuid.UUID
}

// DismissResult pairs the moved event with the dismissed student's name.
type DismissResult struct {
	PickupEvent *models.StudentPickupEvent
	StudentName string
}

func summarizeParent(p models.Parent) ParentSummary {
	summary := ParentSummary{
		ID:          p.ID,
		Name:        p.User.Name,
		Email:       p.User.Email,
		Status:      p.Status,
		ArrivalTime: p.ArrivalTime,
		Students:    make([]StudentSummary, 0, len(p.Students)),
	}
	for _, s := range p.Students {
		teacher := ""
		if s.Teacher != nil {
			teacher = s.Teacher.User.Name
		}
		summary.Students = append(summary.Students, StudentSummary{
			ID:      s.ID,
			Name:    s.Name,
			Grade:   s.Grade,
			Status:  s.Status,
			Teacher: teacher,
		})
	}
	return summary
}
