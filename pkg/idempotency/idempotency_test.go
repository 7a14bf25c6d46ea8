package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMark_FirstDelivery(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	guard, err := NewGuard(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "square", "evt-123")
	if err != nil {
		t.Fatalf("CheckAndMark: %v", err)
	}
	if seen {
		t.Fatalf("expected first delivery to be unseen")
	}
	if store.lastKey != "sf:idempotency:evt:square:evt-123" {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestCheckAndMark_Redelivery(t *testing.T) {
	guard, _ := NewGuard(&fakeStore{setNXResult: false}, time.Hour)

	seen, err := guard.CheckAndMark(context.Background(), "square", "evt-123")
	if err != nil {
		t.Fatalf("CheckAndMark: %v", err)
	}
	if !seen {
		t.Fatalf("expected redelivery to be detected")
	}
}

func TestCheckAndMark_StoreError(t *testing.T) {
	guard, _ := NewGuard(&fakeStore{setNXError: errors.New("redis down")}, time.Hour)
	if _, err := guard.CheckAndMark(context.Background(), "square", "evt-123"); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestRelease(t *testing.T) {
	store := &fakeStore{}
	guard, _ := NewGuard(store, time.Hour)
	if err := guard.Release(context.Background(), "square", "evt-9"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != "sf:idempotency:evt:square:evt-9" {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}

func TestValidation(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected nil store to fail")
	}
	guard, _ := NewGuard(&fakeStore{}, time.Hour)
	if _, err := guard.CheckAndMark(context.Background(), "", "evt"); err == nil {
		t.Fatal("expected empty scope to fail")
	}
	if _, err := guard.CheckAndMark(context.Background(), "square", " "); err == nil {
		t.Fatal("expected empty event id to fail")
	}
}
