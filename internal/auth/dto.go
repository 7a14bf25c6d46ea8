package auth

import (
	"github.com/angelmondragon/storefront-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required"`
}

// LoginMeta carries request details recorded in the login audit.
type LoginMeta struct {
	IP        string
	UserAgent string
}

// LoginResponse contains the access token and the authenticated user.
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
	User      *users.UserDTO `json:"usuario"`
}
