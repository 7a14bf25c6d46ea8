package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Guard tracks processed inbound event IDs (webhook deliveries) per scope using
// Redis SETNX with a TTL. Keys follow `sf:idempotency:evt:<scope>:<event_id>`.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds a guard that remembers events for ttl.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true if the event was already seen, otherwise marks it.
func (g *Guard) CheckAndMark(ctx context.Context, scope, eventID string) (bool, error) {
	key, err := g.key(scope, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets the event so a redelivery is processed again. Called when
// handling failed after CheckAndMark succeeded.
func (g *Guard) Release(ctx context.Context, scope, eventID string) error {
	key, err := g.key(scope, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(scope, eventID string) (string, error) {
	scope = strings.TrimSpace(scope)
	eventID = strings.TrimSpace(eventID)
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+scope, eventID), nil
}
