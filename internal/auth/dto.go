package auth

import (
	"github.com/angelmondragon/carline-backend/internal/users"
)

// LoginRequest is the login body. The password cap keeps a single request
// from making argon2 hash megabytes.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the signed token for the cookie and header; only the
// user is serialized.
type LoginResponse struct {
	AccessToken string         `json:"-"`
	User        *users.UserDTO `json:"user"`
}
