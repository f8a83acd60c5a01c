package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/outbox"
)

func TestEndOfDayResetClosesYesterdayOnly(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	yesterday := now.Add(-20 * time.Hour)
	earlyToday := now.Add(-2 * time.Hour)

	mkUser := func(email string, role enums.UserRole) uuid.UUID {
		u := models.User{Email: email, Name: email, PasswordHash: "x", Role: role}
		require.NoError(t, conn.Create(&u).Error)
		return u.ID
	}
	teacher := models.Teacher{UserID: mkUser("t@school.edu", enums.UserRoleTeacher)}
	require.NoError(t, conn.Omit("User").Create(&teacher).Error)
	dismisser := models.Dismisser{UserID: mkUser("d@school.edu", enums.UserRoleDismisser)}
	require.NoError(t, conn.Omit("User").Create(&dismisser).Error)

	stale := models.Parent{UserID: mkUser("stale@example.com", enums.UserRoleParent), Status: enums.ParentStatusArrived, ArrivalTime: &yesterday}
	fresh := models.Parent{UserID: mkUser("fresh@example.com", enums.UserRoleParent), Status: enums.ParentStatusArrived, ArrivalTime: &earlyToday}
	for _, p := range []*models.Parent{&stale, &fresh} {
		require.NoError(t, conn.Omit("User", "Students").Create(p).Error)
	}

	oldReady := models.Student{Name: "Old", Grade: "1", TeacherID: teacher.ID, Status: enums.StudentStatusReady, UpdatedAt: yesterday}
	todayDismissed := models.Student{Name: "New", Grade: "1", TeacherID: teacher.ID, Status: enums.StudentStatusDismissed, UpdatedAt: earlyToday}
	for _, s := range []*models.Student{&oldReady, &todayDismissed} {
		require.NoError(t, conn.Omit("Teacher", "Parents", "PickupEvents").Create(s).Error)
	}

	oldEntry := models.CarlineQueueEntry{ParentID: stale.ID, DismisserID: dismisser.ID, Position: 1, CreatedAt: yesterday}
	todayEntry := models.CarlineQueueEntry{ParentID: fresh.ID, DismisserID: dismisser.ID, Position: 2, CreatedAt: earlyToday}
	for _, e := range []*models.CarlineQueueEntry{&oldEntry, &todayEntry} {
		require.NoError(t, conn.Omit("Parent", "Students", "PickupEvents").Create(e).Error)
	}

	job := newEndOfDayJob(t, conn)
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	var closedEntry, openEntry models.CarlineQueueEntry
	require.NoError(t, conn.Take(&closedEntry, "id = ?", oldEntry.ID).Error)
	require.NotNil(t, closedEntry.ProcessedAt)
	require.NoError(t, conn.Take(&openEntry, "id = ?", todayEntry.ID).Error)
	require.Nil(t, openEntry.ProcessedAt)

	var resetStudent, keptStudent models.Student
	require.NoError(t, conn.Take(&resetStudent, "id = ?", oldReady.ID).Error)
	require.Equal(t, enums.StudentStatusAwaiting, resetStudent.Status)
	require.NoError(t, conn.Take(&keptStudent, "id = ?", todayDismissed.ID).Error)
	require.Equal(t, enums.StudentStatusDismissed, keptStudent.Status)

	var resetParent, keptParent models.Parent
	require.NoError(t, conn.Take(&resetParent, "id = ?", stale.ID).Error)
	require.Equal(t, enums.ParentStatusNotArrived, resetParent.Status)
	require.Nil(t, resetParent.ArrivalTime)
	require.NoError(t, conn.Take(&keptParent, "id = ?", fresh.ID).Error)
	require.Equal(t, enums.ParentStatusArrived, keptParent.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventQueueEntryClosed, events[0].EventType)
	require.Equal(t, oldEntry.ID, events[0].AggregateID)

	// a second run the same day has nothing left to do
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
}

func TestEndOfDayResetUsesSchoolTimezone(t *testing.T) {
	conn := dbtest.Open(t)
	loc := time.FixedZone("school", -5*60*60)
	// 03:00 UTC is still the previous evening at the school
	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	u := models.User{Email: "p@example.com", Name: "p", PasswordHash: "x", Role: enums.UserRoleParent}
	require.NoError(t, conn.Create(&u).Error)
	arrived := now.Add(-4 * time.Hour)
	parent := models.Parent{UserID: u.ID, Status: enums.ParentStatusArrived, ArrivalTime: &arrived}
	require.NoError(t, conn.Omit("User", "Students").Create(&parent).Error)

	job := newEndOfDayJob(t, conn)
	job.loc = loc
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(context.Background()))

	var got models.Parent
	require.NoError(t, conn.Take(&got, "id = ?", parent.ID).Error)
	require.Equal(t, enums.ParentStatusArrived, got.Status)
}

func newEndOfDayJob(t *testing.T, conn *gorm.DB) *endOfDayResetJob {
	t.Helper()
	jobIface, err := NewEndOfDayResetJob(EndOfDayResetJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     db.NewFromGorm(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	job, ok := jobIface.(*endOfDayResetJob)
	require.True(t, ok, "expected endOfDayResetJob, got %T", jobIface)
	return job
}
