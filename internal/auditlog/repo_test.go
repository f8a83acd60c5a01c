package auditlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/pagination"
)

func seedHistory(t *testing.T, conn *gorm.DB) []models.StudentPickupEvent {
	t.Helper()
	mkUser := func(name string, role enums.UserRole) models.User {
		u := models.User{Email: name + "@school.edu", Name: name, PasswordHash: "x", Role: role}
		require.NoError(t, conn.Create(&u).Error)
		return u
	}

	teacher := models.Teacher{UserID: mkUser("rivera", enums.UserRoleTeacher).ID}
	require.NoError(t, conn.Omit("User").Create(&teacher).Error)
	parent := models.Parent{UserID: mkUser("zoe", enums.UserRoleParent).ID, Status: enums.ParentStatusArrived}
	require.NoError(t, conn.Omit("User", "Students").Create(&parent).Error)
	dismisser := models.Dismisser{UserID: mkUser("dana", enums.UserRoleDismisser).ID}
	require.NoError(t, conn.Omit("User").Create(&dismisser).Error)
	student := models.Student{Name: "Ava", Grade: "2", TeacherID: teacher.ID, Status: enums.StudentStatusDismissed}
	require.NoError(t, conn.Omit("Teacher", "Parents", "PickupEvents").Create(&student).Error)

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	entry := models.CarlineQueueEntry{ParentID: parent.ID, DismisserID: dismisser.ID, Position: 3, CreatedAt: base}
	require.NoError(t, conn.Omit("Parent", "Students", "PickupEvents").Create(&entry).Error)

	dismissedAt := base.Add(10 * time.Minute)
	events := []models.StudentPickupEvent{
		{StudentID: student.ID, ParentID: parent.ID, QueueEntryID: entry.ID, Status: enums.PickupStatusDismissed,
			DismissedAt: &dismissedAt, DismissedBy: &dismisser.ID, CreatedAt: base},
		{StudentID: student.ID, ParentID: parent.ID, QueueEntryID: entry.ID, Status: enums.PickupStatusQueued,
			CreatedAt: base.Add(24 * time.Hour)},
		{StudentID: student.ID, ParentID: parent.ID, QueueEntryID: entry.ID, Status: enums.PickupStatusReady,
			CreatedAt: base.Add(48 * time.Hour)},
	}
	for i := range events {
		require.NoError(t, conn.Omit("Student", "Parent", "QueueEntry", "Dismisser").Create(&events[i]).Error)
	}
	return events
}

func TestListNewestFirstWithRelations(t *testing.T) {
	conn := dbtest.Open(t)
	events := seedHistory(t, conn)
	repo := NewRepository(conn)

	got, total, err := repo.List(context.Background(), Query{Page: pagination.Params{Page: 1, Limit: 2}})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, got, 2)
	require.Equal(t, events[2].ID, got[0].ID)
	require.Equal(t, events[1].ID, got[1].ID)
	require.Equal(t, "rivera", got[0].Student.Teacher.User.Name)
	require.Equal(t, "zoe", got[0].Parent.User.Name)
	require.Equal(t, 3, got[0].QueueEntry.Position)

	got, _, err = repo.List(context.Background(), Query{Page: pagination.Params{Page: 2, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, events[0].ID, got[0].ID)
	require.NotNil(t, got[0].Dismisser)
	require.Equal(t, "dana", got[0].Dismisser.User.Name)
}

func TestListFilters(t *testing.T) {
	conn := dbtest.Open(t)
	events := seedHistory(t, conn)
	repo := NewRepository(conn)
	ctx := context.Background()

	got, total, err := repo.List(ctx, Query{Status: enums.PickupStatusQueued})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, events[1].ID, got[0].ID)

	from := events[1].CreatedAt
	to := events[1].CreatedAt.Add(time.Hour)
	got, total, err = repo.List(ctx, Query{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, events[1].ID, got[0].ID)
}
