package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestActorCanActOn(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	cases := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{name: "owner", actor: Actor{UserID: owner}, want: true},
		{name: "stranger", actor: Actor{UserID: other}, want: false},
		{name: "admin", actor: Actor{UserID: other, IsAdmin: true}, want: true},
		{name: "anonymous admin flag", actor: Actor{IsAdmin: true}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.actor.CanActOn(owner); got != tc.want {
				t.Fatalf("CanActOn = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestActorFromClaims(t *testing.T) {
	id := uuid.New()
	claims := &AccessTokenClaims{UserID: id, IsAdmin: true}
	claims.Subject = "ana@example.com"

	actor := ActorFromClaims(claims)
	if actor.UserID != id || actor.Email != "ana@example.com" || !actor.IsAdmin {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if !ActorFromClaims(nil).IsZero() {
		t.Fatal("nil claims should produce a zero actor")
	}
}
