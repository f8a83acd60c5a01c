package parents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

type rosterStore interface {
	ParentByUserID(ctx context.Context, userID uuid.UUID) (*models.Parent, error)
	ActivePickups(ctx context.Context, studentIDs []uuid.UUID) ([]models.StudentPickupEvent, error)
}

type queueReader interface {
	StudentsForParent(ctx context.Context, parentID uuid.UUID) ([]models.Student, error)
	Position(ctx context.Context, queueEntryID uuid.UUID) (*queue.PositionResult, error)
}

// StudentView is what a parent sees for each child they may collect.
type StudentView struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Grade         string              `json:"grade"`
	Status        enums.StudentStatus `json:"status"`
	Teacher       string              `json:"teacher"`
	CurrentPickup *Pickup             `json:"currentPickup"`
}

// Pickup reports where the child's pickup stands in the carline.
type Pickup struct {
	PickupEventID   uuid.UUID          `json:"pickupEventId"`
	QueueEntryID    uuid.UUID          `json:"queueEntryId"`
	Status          enums.PickupStatus `json:"status"`
	QueuedAt        time.Time          `json:"queuedAt"`
	QueuePosition   int                `json:"queuePosition"`
	PositionInQueue int                `json:"positionInQueue"`
}

type Service struct {
	roster rosterStore
	queue  queueReader
}

func NewService(roster rosterStore, queue queueReader) (*Service, error) {
	if roster == nil {
		return nil, errors.New("roster repository required")
	}
	if queue == nil {
		return nil, errors.New("queue engine required")
	}
	return &Service{roster: roster, queue: queue}, nil
}

// Students returns the caller's authorized students and their live pickup state.
func (s *Service) Students(ctx context.Context, userID uuid.UUID) ([]StudentView, error) {
	parent, err := s.roster.ParentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Parent profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent profile")
	}

	students, err := s.queue.StudentsForParent(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	events, err := s.roster.ActivePickups(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load active pickups")
	}
	latest := make(map[uuid.UUID]models.StudentPickupEvent, len(events))
	for _, ev := range events {
		if _, seen := latest[ev.StudentID]; !seen {
			latest[ev.StudentID] = ev
		}
	}

	ranks := map[uuid.UUID]int{}
	out := make([]StudentView, 0, len(students))
	for _, st := range students {
		view := StudentView{ID: st.ID, Name: st.Name, Grade: st.Grade, Status: st.Status}
		if st.Teacher != nil {
			view.Teacher = st.Teacher.User.Name
		}
		if ev, ok := latest[st.ID]; ok {
			pickup := &Pickup{
				PickupEventID: ev.ID,
				QueueEntryID:  ev.QueueEntryID,
				Status:        ev.Status,
				QueuedAt:      ev.CreatedAt,
			}
			if ev.QueueEntry != nil && ev.QueueEntry.IsOpen() {
				pickup.QueuePosition = ev.QueueEntry.Position
				rank, ok := ranks[ev.QueueEntryID]
				if !ok {
					pos, err := s.queue.Position(ctx, ev.QueueEntryID)
					if err != nil {
						return nil, err
					}
					rank = pos.PositionInQueue
					ranks[ev.QueueEntryID] = rank
				}
				pickup.PositionInQueue = rank
			}
			view.CurrentPickup = pickup
		}
		out = append(out, view)
	}
	return out, nil
}
