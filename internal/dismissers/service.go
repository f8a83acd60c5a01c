package dismissers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

type rosterStore interface {
	DismisserByUserID(ctx context.Context, userID uuid.UUID) (*models.Dismisser, error)
	ParentByID(ctx context.Context, id uuid.UUID) (*models.Parent, error)
	ParentsWithStudents(ctx context.Context) ([]models.Parent, error)
	AuthorizedStudentIDs(ctx context.Context, parentID uuid.UUID, candidates []uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// Service runs the dismisser role checks in front of the queue engine.
type Service struct {
	roster rosterStore
	engine queue.Engine
}

func NewService(roster rosterStore, engine queue.Engine) (*Service, error) {
	if roster == nil {
		return nil, errors.New("roster repository required")
	}
	if engine == nil {
		return nil, errors.New("queue engine required")
	}
	return &Service{roster: roster, engine: engine}, nil
}

// ListParents returns every parent with their authorized students.
func (s *Service) ListParents(ctx context.Context) ([]ParentSummary, error) {
	parents, err := s.roster.ParentsWithStudents(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list parents")
	}
	out := make([]ParentSummary, 0, len(parents))
	for _, p := range parents {
		out = append(out, summarizeParent(p))
	}
	return out, nil
}

func (s *Service) Queue(ctx context.Context) ([]models.CarlineQueueEntry, error) {
	return s.engine.CurrentQueue(ctx)
}

func (s *Service) QueueEntry(ctx context.Context, queueEntryID uuid.UUID) (*queue.PositionResult, error) {
	return s.engine.Position(ctx, queueEntryID)
}

// Enqueue checks the caller's profile, the parent and every student's
// authorization before anything is written.
func (s *Service) Enqueue(ctx context.Context, userID uuid.UUID, input EnqueueInput) (*queue.EnqueueResult, error) {
	if input.ParentID == uuid.Nil || len(input.StudentIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Parent ID and student IDs are required")
	}
	dismisser, err := s.dismisser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.roster.ParentByID(ctx, input.ParentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Parent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent")
	}

	authorized, err := s.roster.AuthorizedStudentIDs(ctx, input.ParentID, input.StudentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load authorized students")
	}
	for _, id := range input.StudentIDs {
		if _, ok := authorized[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Parent is not authorized to pick up some of the selected students")
		}
	}

	return s.engine.Enqueue(ctx, input.ParentID, input.StudentIDs, dismisser.ID)
}

// Dismiss requires an open entry holding the student, and the student to be READY.
func (s *Service) Dismiss(ctx context.Context, userID uuid.UUID, input DismissInput) (*DismissResult, error) {
	if input.StudentID == uuid.Nil || input.QueueEntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Student ID and queue entry ID are required")
	}
	dismisser, err := s.dismisser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := s.engine.Entry(ctx, input.QueueEntryID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Queue entry not found")
		}
		return nil, err
	}
	if entry.ProcessedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Queue entry is already closed")
	}

	var student *models.Student
	for i := range entry.Students {
		if entry.Students[i].StudentID == input.StudentID {
			student = entry.Students[i].Student
			break
		}
	}
	if student == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Student not found in this queue entry")
	}
	if student.Status != enums.StudentStatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "Student is not ready for pickup. Teacher must mark student as ready first.")
	}

	event, err := s.engine.Dismiss(ctx, input.StudentID, dismisser.ID, input.QueueEntryID)
	if err != nil {
		return nil, err
	}
	return &DismissResult{PickupEvent: event, StudentName: student.Name}, nil
}

func (s *Service) dismisser(ctx context.Context, userID uuid.UUID) (*models.Dismisser, error) {
	dismisser, err := s.roster.DismisserByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Dismisser profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dismisser profile")
	}
	return dismisser, nil
}
