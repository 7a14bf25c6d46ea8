package middleware

import (
	"context"

	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// ActorFromContext returns the authenticated caller, or a zero Actor when the
// request is anonymous.
func ActorFromContext(ctx context.Context) pkgauth.Actor {
	if ctx == nil {
		return pkgauth.Actor{}
	}
	if v, ok := ctx.Value(ctxActor).(pkgauth.Actor); ok {
		return v
	}
	return pkgauth.Actor{}
}

func UserIDFromContext(ctx context.Context) string {
	actor := ActorFromContext(ctx)
	if actor.IsZero() {
		return ""
	}
	return actor.UserID.String()
}

// AccessIDFromContext returns the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the caller into the context.
func WithActor(ctx context.Context, actor pkgauth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}
