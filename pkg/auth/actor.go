package auth

import "github.com/google/uuid"

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}

// ActorFromClaims builds an Actor from parsed token claims.
func ActorFromClaims(c *AccessTokenClaims) Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{UserID: c.UserID, Email: c.Email(), IsAdmin: c.IsAdmin}
}

// IsZero reports whether no caller identity is present.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

// CanActOn reports whether the actor may modify resources owned by ownerID.
// Admins may act on anyone.
func (a Actor) CanActOn(ownerID uuid.UUID) bool {
	if a.IsZero() {
		return false
	}
	return a.IsAdmin || a.UserID == ownerID
}
