package teachers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

type rosterStore interface {
	TeacherByUserID(ctx context.Context, userID uuid.UUID) (*models.Teacher, error)
	StudentByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	StudentsForTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Student, error)
}

type readyMarker interface {
	MarkReady(ctx context.Context, studentID, teacherID uuid.UUID) (*models.StudentPickupEvent, error)
}

// Service backs the teacher dashboard.
type Service struct {
	roster rosterStore
	engine readyMarker
}

func NewService(roster rosterStore, engine readyMarker) (*Service, error) {
	if roster == nil {
		return nil, errors.New("roster repository required")
	}
	if engine == nil {
		return nil, errors.New("queue engine required")
	}
	return &Service{roster: roster, engine: engine}, nil
}

// Students lists the caller's class with the current pickup of each student.
func (s *Service) Students(ctx context.Context, userID uuid.UUID) ([]StudentView, error) {
	teacher, err := s.teacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.StudentsForTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list students")
	}
	out := make([]StudentView, 0, len(students))
	for _, st := range students {
		out = append(out, toStudentView(st))
	}
	return out, nil
}

// MarkReady releases one of the caller's students whose parent is waiting.
func (s *Service) MarkReady(ctx context.Context, userID, studentID uuid.UUID) (*MarkReadyResult, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Student ID is required")
	}
	teacher, err := s.teacher(ctx, userID)
	if err != nil {
		return nil, err
	}

	student, err := s.roster.StudentByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Student not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load student")
	}
	if student.TeacherID != teacher.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized to mark this student")
	}

	var pending *models.StudentPickupEvent
	for i := range student.PickupEvents {
		if ev := student.PickupEvents[i]; ev.Status.IsPending() && ev.InOpenEntry() {
			pending = &student.PickupEvents[i]
			break
		}
	}
	if pending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "No pending pickup request for this student")
	}

	event, err := s.engine.MarkReady(ctx, studentID, teacher.ID)
	if err != nil {
		return nil, err
	}

	result := &MarkReadyResult{PickupEvent: event, StudentName: student.Name}
	if parent := pickupParent(event, pending); parent != nil {
		result.ParentName = parent.User.Name
	}
	return result, nil
}

func pickupParent(moved, pending *models.StudentPickupEvent) *models.Parent {
	if moved != nil && moved.Parent != nil {
		return moved.Parent
	}
	if pending != nil {
		return pending.Parent
	}
	return nil
}

func (s *Service) teacher(ctx context.Context, userID uuid.UUID) (*models.Teacher, error) {
	teacher, err := s.roster.TeacherByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Teacher profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load teacher profile")
	}
	return teacher, nil
}
