package auditlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
)

type stubStore struct {
	query  Query
	events []models.StudentPickupEvent
	total  int64
}

func (s *stubStore) List(_ context.Context, q Query) ([]models.StudentPickupEvent, int64, error) {
	s.query = q
	return s.events, s.total, nil
}

func TestListDefaults(t *testing.T) {
	store := &stubStore{total: 120}
	svc, err := NewService(store)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.query.Page.Page)
	assert.Equal(t, 50, store.query.Page.Limit)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.NotNil(t, page.Logs)
}

func TestListParsesFilters(t *testing.T) {
	store := &stubStore{}
	svc, err := NewService(store)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), Filter{
		Page: "2", Limit: "500", DateFrom: "2026-03-02", DateTo: "2026-03-02", Status: "dismissed",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, store.query.Page.Limit)
	assert.Equal(t, enums.PickupStatusDismissed, store.query.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *store.query.DateFrom)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC), *store.query.DateTo)
}

func TestListRejectsBadFilters(t *testing.T) {
	svc, err := NewService(&stubStore{})
	require.NoError(t, err)

	cases := map[string]Filter{
		"status":   {Status: "LOST"},
		"dateFrom": {DateFrom: "yesterday"},
		"dateTo":   {DateTo: "03/02/2026"},
		"range":    {DateFrom: "2026-03-05", DateTo: "2026-03-01"},
		"page":     {Page: "0"},
	}
	for name, filter := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.List(context.Background(), filter)
			require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestListFormatsLogs(t *testing.T) {
	queued := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	processed := queued.Add(20 * time.Minute)
	store := &stubStore{total: 1, events: []models.StudentPickupEvent{{
		ID:              uuid.New(),
		Status:          enums.PickupStatusDismissed,
		DismissalMethod: ptr(enums.DismissalMethodCarline),
		CreatedAt:       queued,
		Student: &models.Student{Name: "Ava", Grade: "2",
			Teacher: &models.Teacher{User: models.User{Name: "Ms. Rivera"}}},
		Parent:     &models.Parent{User: models.User{Name: "Zoe", Email: "zoe@school.edu"}},
		Dismisser:  &models.Dismisser{User: models.User{Name: "Dana"}},
		QueueEntry: &models.CarlineQueueEntry{Position: 4, CreatedAt: queued, ProcessedAt: &processed},
	}}}
	svc, err := NewService(store)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	log := page.Logs[0]
	assert.Equal(t, "Ms. Rivera", log.Student.Teacher)
	assert.Equal(t, "zoe@school.edu", log.Parent.Email)
	require.NotNil(t, log.Dismisser)
	assert.Equal(t, "Dana", log.Dismisser.Name)
	assert.Equal(t, 4, *log.Timeline.QueuePosition)
	assert.Equal(t, processed, *log.Timeline.ProcessedAt)
	require.NotNil(t, log.DismissalMethod)
	assert.Equal(t, enums.DismissalMethodCarline, *log.DismissalMethod)
}

func TestListLeavesDismissalMethodNullUntilDismissed(t *testing.T) {
	store := &stubStore{total: 1, events: []models.StudentPickupEvent{{ID: uuid.New(), Status: enums.PickupStatusQueued}}}
	svc, err := NewService(store)
	require.NoError(t, err)

	page, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	raw, err := json.Marshal(page.Logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dismissalMethod":null`)
}

func ptr[T any](v T) *T { return &v }
