package auth

import (
	"github.com/angelmondragon/carline-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"userId"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	Name   string         `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the verified caller extracted from a token.
type Identity struct {
	UserID    uuid.UUID      `json:"userId"`
	Email     string         `json:"email"`
	Role      enums.UserRole `json:"role"`
	Name      string         `json:"name"`
	SessionID string         `json:"-"`
}

// Identity converts claims into the request-scoped caller.
func (c *AccessTokenClaims) Identity() Identity {
	return Identity{
		UserID:    c.UserID,
		Email:     c.Email,
		Role:      c.Role,
		Name:      c.Name,
		SessionID: c.ID,
	}
}
