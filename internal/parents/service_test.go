package parents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/queue"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

type stubRoster struct {
	parent *models.Parent
	events []models.StudentPickupEvent
}

func (s *stubRoster) ParentByUserID(context.Context, uuid.UUID) (*models.Parent, error) {
	if s.parent == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.parent, nil
}

func (s *stubRoster) ActivePickups(context.Context, []uuid.UUID) ([]models.StudentPickupEvent, error) {
	return s.events, nil
}

type stubQueue struct {
	students      []models.Student
	rank          int
	positionCalls int
}

func (s *stubQueue) StudentsForParent(context.Context, uuid.UUID) ([]models.Student, error) {
	return s.students, nil
}

func (s *stubQueue) Position(_ context.Context, id uuid.UUID) (*queue.PositionResult, error) {
	s.positionCalls++
	return &queue.PositionResult{CarlineQueueEntry: models.CarlineQueueEntry{ID: id}, PositionInQueue: s.rank}, nil
}

func TestStudentsReportsEffectivePosition(t *testing.T) {
	entry := &models.CarlineQueueEntry{ID: uuid.New(), Position: 5}
	ava := models.Student{ID: uuid.New(), Name: "Ava", Teacher: &models.Teacher{User: models.User{Name: "Ms. Rivera"}}}
	ben := models.Student{ID: uuid.New(), Name: "Ben"}
	cara := models.Student{ID: uuid.New(), Name: "Cara"}
	roster := &stubRoster{
		parent: &models.Parent{ID: uuid.New()},
		events: []models.StudentPickupEvent{
			{ID: uuid.New(), StudentID: ava.ID, QueueEntryID: entry.ID, QueueEntry: entry, Status: enums.PickupStatusReady},
			{ID: uuid.New(), StudentID: ben.ID, QueueEntryID: entry.ID, QueueEntry: entry, Status: enums.PickupStatusQueued},
			{ID: uuid.New(), StudentID: ava.ID, QueueEntryID: uuid.New(), Status: enums.PickupStatusQueued},
		},
	}
	q := &stubQueue{students: []models.Student{ava, ben, cara}, rank: 2}
	svc, err := NewService(roster, q)
	require.NoError(t, err)

	views, err := svc.Students(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, views, 3)

	require.Equal(t, "Ms. Rivera", views[0].Teacher)
	require.Equal(t, enums.PickupStatusReady, views[0].CurrentPickup.Status)
	require.Equal(t, 5, views[0].CurrentPickup.QueuePosition)
	require.Equal(t, 2, views[0].CurrentPickup.PositionInQueue)
	require.Equal(t, 2, views[1].CurrentPickup.PositionInQueue)
	require.Nil(t, views[2].CurrentPickup)
	require.Equal(t, 1, q.positionCalls)
}

func TestStudentsMissingProfile(t *testing.T) {
	svc, err := NewService(&stubRoster{}, &stubQueue{})
	require.NoError(t, err)

	_, err = svc.Students(context.Background(), uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
