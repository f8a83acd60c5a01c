package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewFromGorm(conn), testPasswordConfig, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateAccountCreatesProfile(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{
		Email:    " Teacher@School.edu ",
		Name:     "Ms. Rivera",
		Password: "teacher123",
		Role:     enums.UserRoleTeacher,
	})
	require.NoError(t, err)
	require.Equal(t, "teacher@school.edu", account.User.Email)
	require.NotNil(t, account.Profile)
	require.Equal(t, enums.UserRoleTeacher, account.Profile.Type)

	stored, err := repo.FindByEmail(ctx, "TEACHER@school.edu")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("teacher123", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	profile, err := repo.FindProfile(ctx, stored)
	require.NoError(t, err)
	require.Equal(t, account.Profile.ID, profile.ID)
}

func TestCreateAccountParentStartsNotArrived(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{
		Email:    "parent@example.com",
		Name:     "Pat Parent",
		Password: "parent123",
		Role:     enums.UserRoleParent,
	})
	require.NoError(t, err)

	var parent models.Parent
	require.NoError(t, repo.db.First(&parent, "id = ?", account.Profile.ID).Error)
	require.Equal(t, enums.ParentStatusNotArrived, parent.Status)
	require.Nil(t, parent.ArrivalTime)
}

func TestCreateAccountAdminHasNoProfile(t *testing.T) {
	svc, repo := newTestService(t)

	account, err := svc.CreateAccount(context.Background(), CreateAccountInput{
		Email:    "admin@school.edu",
		Name:     "Admin",
		Password: "admin123",
		Role:     enums.UserRoleAdmin,
	})
	require.NoError(t, err)
	require.Nil(t, account.Profile)

	profile, err := repo.FindProfile(context.Background(), account.User)
	require.NoError(t, err)
	require.Nil(t, profile)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	input := CreateAccountInput{
		Email:    "dismisser@school.edu",
		Name:     "Dana",
		Password: "dismisser123",
		Role:     enums.UserRoleDismisser,
	}
	_, err := svc.CreateAccount(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), input)
	require.Error(t, err)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []CreateAccountInput{
		{Email: "nope", Name: "x", Password: "p", Role: enums.UserRoleAdmin},
		{Email: "a@b.c", Name: " ", Password: "p", Role: enums.UserRoleAdmin},
		{Email: "a@b.c", Name: "x", Password: "p", Role: enums.UserRole("JANITOR")},
		{Email: "a@b.c", Name: "x", Password: "", Role: enums.UserRoleAdmin},
	}
	for _, input := range cases {
		_, err := svc.CreateAccount(context.Background(), input)
		require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestUpdateLastLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	account, err := svc.CreateAccount(ctx, CreateAccountInput{
		Email: "t@school.edu", Name: "T", Password: "pw", Role: enums.UserRoleTeacher,
	})
	require.NoError(t, err)

	now := account.User.CreatedAt.Add(1)
	require.NoError(t, repo.UpdateLastLogin(ctx, account.User.ID, now))

	stored, err := repo.FindByID(ctx, account.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}
