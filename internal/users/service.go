package users

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/carline-backend/pkg/errors"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/security"
)

// Service creates accounts together with their role profile.
type Service struct {
	repo     *Repository
	tx       db.TxRunner
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewService(repo *Repository, tx db.TxRunner, password config.PasswordConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{repo: repo, tx: tx, password: password, logg: logg}, nil
}

// CreateAccount hashes the password and writes the user and its profile in one transaction.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var account Account
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.Create(ctx, CreateUserDTO{
			Email:        email,
			PasswordHash: hash,
			Name:         input.Name,
			Role:         input.Role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		profile, err := repo.CreateProfile(ctx, user)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
		account = Account{User: user, Profile: profile}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": account.User.ID.String(),
			"role":    account.User.Role,
		})
		s.logg.Info(logCtx, "account created")
	}
	return &account, nil
}
