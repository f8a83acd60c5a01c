package teachers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// StudentView is one row of the teacher dashboard.
type StudentView struct {
	ID                uuid.UUID           `json:"id"`
	Name              string              `json:"name"`
	Grade             string              `json:"grade"`
	Status            enums.StudentStatus `json:"status"`
	AuthorizedParents []string            `json:"authorizedParents"`
	CurrentPickup     *CurrentPickup      `json:"currentPickup"`
}

// CurrentPickup describes the newest pickup that is not yet dismissed.
type CurrentPickup struct {
	PickupEventID uuid.UUID          `json:"pickupEventId"`
	QueueEntryID  uuid.UUID          `json:"queueEntryId"`
	ParentName    string             `json:"parentName"`
	Status        enums.PickupStatus `json:"status"`
	QueuedAt      time.Time          `json:"queuedAt"`
	NotifiedAt    *time.Time         `json:"notifiedAt"`
}

// MarkReadyResult is the moved event plus names for the confirmation message.
type MarkReadyResult struct {
	PickupEvent *models.StudentPickupEvent
	StudentName string
	ParentName  string
}

func toStudentView(s models.Student) StudentView {
	view := StudentView{
		ID:                s.ID,
		Name:              s.Name,
		Grade:             s.Grade,
		Status:            s.Status,
		AuthorizedParents: make([]string, 0, len(s.Parents)),
	}
	for _, p := range s.Parents {
		view.AuthorizedParents = append(view.AuthorizedParents, p.User.Name)
	}
	if len(s.PickupEvents) > 0 {
		ev := s.PickupEvents[0]
		current := &CurrentPickup{
			PickupEventID: ev.ID,
			QueueEntryID:  ev.QueueEntryID,
			Status:        ev.Status,
			QueuedAt:      ev.CreatedAt,
			NotifiedAt:    ev.NotifiedTeacherAt,
		}
		if ev.Parent != nil {
			current.ParentName = ev.Parent.User.Name
		}
		view.CurrentPickup = current
	}
	return view
}
