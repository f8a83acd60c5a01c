// Package seed loads the demo school used in development and review environments.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/internal/roster"
	"github.com/angelmondragon/carline-backend/internal/users"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

type Account struct {
	Email    string
	Name     string
	Password string
	Role     enums.UserRole
}

type Student struct {
	Name         string
	Grade        string
	TeacherEmail string
	ParentEmails []string
}

type Dataset struct {
	Accounts []Account
	Students []Student
}

// Demo mirrors the fixture school: one admin, one dismisser, three teachers,
// four parents and six students.
func Demo() Dataset {
	return Dataset{
		Accounts: []Account{
			{Email: "admin@school.edu", Name: "Admin User", Password: "admin123", Role: enums.UserRoleAdmin},
			{Email: "dismisser1@school.edu", Name: "Jane Dismisser", Password: "dismisser123", Role: enums.UserRoleDismisser},
			{Email: "teacher1@school.edu", Name: "Ms. Johnson", Password: "teacher123", Role: enums.UserRoleTeacher},
			{Email: "teacher2@school.edu", Name: "Mr. Smith", Password: "teacher123", Role: enums.UserRoleTeacher},
			{Email: "teacher3@school.edu", Name: "Mrs. Davis", Password: "teacher123", Role: enums.UserRoleTeacher},
			{Email: "parent1@email.com", Name: "John Parent", Password: "parent123", Role: enums.UserRoleParent},
			{Email: "parent2@email.com", Name: "Sarah Parent", Password: "parent123", Role: enums.UserRoleParent},
			{Email: "parent3@email.com", Name: "Mike Parent", Password: "parent123", Role: enums.UserRoleParent},
			{Email: "parent4@email.com", Name: "Lisa Parent", Password: "parent123", Role: enums.UserRoleParent},
		},
		Students: []Student{
			{Name: "Emma Johnson", Grade: "3rd Grade", TeacherEmail: "teacher1@school.edu", ParentEmails: []string{"parent1@email.com"}},
			{Name: "Liam Smith", Grade: "4th Grade", TeacherEmail: "teacher2@school.edu", ParentEmails: []string{"parent2@email.com"}},
			{Name: "Olivia Davis", Grade: "2nd Grade", TeacherEmail: "teacher3@school.edu", ParentEmails: []string{"parent3@email.com"}},
			{Name: "Noah Wilson", Grade: "3rd Grade", TeacherEmail: "teacher1@school.edu", ParentEmails: []string{"parent3@email.com"}},
			{Name: "Ava Brown", Grade: "4th Grade", TeacherEmail: "teacher2@school.edu", ParentEmails: []string{"parent4@email.com"}},
			{Name: "William Johnson", Grade: "1st Grade", TeacherEmail: "teacher3@school.edu", ParentEmails: []string{"parent1@email.com"}},
		},
	}
}

type Result struct {
	AccountsCreated int
	AccountsSkipped int
	StudentsCreated int
	StudentsSkipped int
}

type Seeder struct {
	accounts *users.Service
	users    *users.Repository
	roster   *roster.Repository
	logg     *logger.Logger
}

func NewSeeder(accounts *users.Service, userRepo *users.Repository, rosterRepo *roster.Repository, logg *logger.Logger) (*Seeder, error) {
	if accounts == nil || userRepo == nil || rosterRepo == nil {
		return nil, errors.New("seeder requires users service, users repository and roster repository")
	}
	return &Seeder{accounts: accounts, users: userRepo, roster: rosterRepo, logg: logg}, nil
}

// Run is safe to repeat: existing emails and students are reused, and
// every failure is collected before returning.
func (s *Seeder) Run(ctx context.Context, data Dataset) (Result, error) {
	var (
		res      Result
		errs     error
		profiles = map[string]uuid.UUID{}
	)

	for _, acct := range data.Accounts {
		profileID, created, err := s.ensureAccount(ctx, acct)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", acct.Email, err))
			continue
		}
		if created {
			res.AccountsCreated++
		} else {
			res.AccountsSkipped++
		}
		profiles[users.NormalizeEmail(acct.Email)] = profileID
	}

	for _, st := range data.Students {
		created, err := s.ensureStudent(ctx, st, profiles)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("student %s: %w", st.Name, err))
			continue
		}
		if created {
			res.StudentsCreated++
		} else {
			res.StudentsSkipped++
		}
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"accounts_created": res.AccountsCreated,
			"accounts_skipped": res.AccountsSkipped,
			"students_created": res.StudentsCreated,
			"students_skipped": res.StudentsSkipped,
		}), "seed complete")
	}
	return res, errs
}

func (s *Seeder) ensureAccount(ctx context.Context, acct Account) (uuid.UUID, bool, error) {
	existing, err := s.users.FindByEmail(ctx, acct.Email)
	switch {
	case err == nil:
		profile, err := s.users.FindProfile(ctx, existing)
		if err != nil {
			return uuid.Nil, false, err
		}
		if profile == nil {
			return uuid.Nil, false, nil
		}
		return profile.ID, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return uuid.Nil, false, err
	}

	account, err := s.accounts.CreateAccount(ctx, users.CreateAccountInput{
		Email:    acct.Email,
		Name:     acct.Name,
		Password: acct.Password,
		Role:     acct.Role,
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	if account.Profile == nil {
		return uuid.Nil, true, nil
	}
	return account.Profile.ID, true, nil
}

func (s *Seeder) ensureStudent(ctx context.Context, st Student, profiles map[string]uuid.UUID) (bool, error) {
	teacherID, ok := profiles[users.NormalizeEmail(st.TeacherEmail)]
	if !ok || teacherID == uuid.Nil {
		return false, fmt.Errorf("teacher %s not seeded", st.TeacherEmail)
	}

	created := false
	student, err := s.roster.FindStudentByName(ctx, st.Name, teacherID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		student = &models.Student{
			Name:      st.Name,
			Grade:     st.Grade,
			TeacherID: teacherID,
			Status:    enums.StudentStatusAwaiting,
		}
		if err := s.roster.CreateStudent(ctx, student); err != nil {
			return false, err
		}
		created = true
	} else if err != nil {
		return false, err
	}

	var errs error
	for _, email := range st.ParentEmails {
		parentID, ok := profiles[users.NormalizeEmail(email)]
		if !ok || parentID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("parent %s not seeded", email))
			continue
		}
		errs = multierr.Append(errs, s.roster.AuthorizeParent(ctx, student.ID, parentID))
	}
	return created, errs
}
