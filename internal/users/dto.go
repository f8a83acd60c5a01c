package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Role        enums.UserRole `json:"role"`
	Profile     *ProfileRef    `json:"profile,omitempty"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
}

// ProfileRef points at the role profile row behind a user.
type ProfileRef struct {
	Type enums.UserRole `json:"type"`
	ID   uuid.UUID      `json:"id"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.UserRole
}

// CreateAccountInput is what an admin or the seeder supplies for a new account.
type CreateAccountInput struct {
	Email    string
	Name     string
	Password string
	Role     enums.UserRole
}

// Account is a created user plus its profile reference.
type Account struct {
	User    *models.User
	Profile *ProfileRef
}

func FromModel(u *models.User, profile *ProfileRef) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Profile:     profile,
		LastLoginAt: u.LastLoginAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		Name:         strings.TrimSpace(c.Name),
		Role:         c.Role,
	}
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
