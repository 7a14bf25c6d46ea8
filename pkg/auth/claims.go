package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Email   string
	Name    string
	IsAdmin bool
	// AccessID becomes the jti. A random one is generated when empty.
	AccessID string
}

// AccessTokenClaims is the token issued by POST /login. The subject carries
// the user's email.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"id"`
	Name    string    `json:"nome"`
	IsAdmin bool      `json:"admin"`
	jwt.RegisteredClaims
}

// Email returns the subject claim.
func (c *AccessTokenClaims) Email() string {
	return c.Subject
}
