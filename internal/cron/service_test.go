package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(reg),
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "outbox-retention"}
	failing := &testJob{name: "payment-sync", err: errors.New("boom")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, prometheus.NewRegistry(), failing, ok)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.False(t, lock.acquired, "lock released after the cycle")
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "payment-sync"}
	svc := newTestService(t, &fakeLock{held: true}, nil, job)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "payment-sync"}
	svc := newTestService(t, &fakeLock{}, nil, job)
	svc.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, job.runs, "first cycle runs immediately")
}

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryLockStore) LockKey(name string) string { return "sf:lock:" + name }

func TestRedisLockOwnership(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, LockName, 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, LockName, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, first.ttl)

	got, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, got)

	got, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, got)

	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "sf:lock:cron-worker", "non-owner release keeps the lock")

	store.values["sf:lock:cron-worker"] = "someone-else"
	require.NoError(t, first.Release(context.Background()))
	assert.Contains(t, store.values, "sf:lock:cron-worker", "expired owner cannot delete a new holder's lock")

	delete(store.values, "sf:lock:cron-worker")
	got, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, got)
	require.NoError(t, second.Release(context.Background()))
	assert.Empty(t, store.values)
}

func TestRunOnceRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, &fakeLock{}, reg,
		&testJob{name: "outbox-retention"},
		&testJob{name: "payment-sync", err: errors.New("x")},
	)
	require.NoError(t, svc.RunOnce(context.Background()))

	expected := `
# HELP storefront_cron_job_runs_total Cron job runs by result.
# TYPE storefront_cron_job_runs_total counter
storefront_cron_job_runs_total{job="outbox-retention",result="ok"} 1
storefront_cron_job_runs_total{job="payment-sync",result="failed"} 1
# HELP storefront_cron_lock_attempts_total Cycle lock attempts by outcome.
# TYPE storefront_cron_lock_attempts_total counter
storefront_cron_lock_attempts_total{outcome="acquired"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"storefront_cron_job_runs_total", "storefront_cron_lock_attempts_total"))

	count, err := testutil.GatherAndCount(reg, "storefront_cron_job_last_success_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the successful job gets a timestamp")
}

func TestRunOnceCountsLockContention(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &testJob{name: "payment-sync"}
	svc := newTestService(t, &fakeLock{held: true}, reg, job)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)

	expected := `
# HELP storefront_cron_lock_attempts_total Cycle lock attempts by outcome.
# TYPE storefront_cron_lock_attempts_total counter
storefront_cron_lock_attempts_total{outcome="held_elsewhere"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_cron_lock_attempts_total"))
}
