package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeSyncer struct {
	cutoff time.Time
	limit  int
	err    error
}

func (f *fakeSyncer) SyncPending(_ context.Context, cutoff time.Time, limit int) (payments.SyncSummary, error) {
	f.cutoff = cutoff
	f.limit = limit
	return payments.SyncSummary{Checked: 2, Applied: 1, Failed: 1}, f.err
}

func TestPaymentSyncJobUsesGracePeriod(t *testing.T) {
	syncer := &fakeSyncer{}
	jobIface, err := NewPaymentSyncJob(PaymentSyncJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Payments: syncer,
		After:    10 * time.Minute,
	})
	require.NoError(t, err)
	job := jobIface.(*paymentSyncJob)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-10*time.Minute), syncer.cutoff)
	assert.Equal(t, defaultSyncLimit, syncer.limit)

	syncer.err = errors.New("gateway down")
	assert.Error(t, job.Run(context.Background()))
}

func TestPaymentSyncJobRequiresSyncer(t *testing.T) {
	_, err := NewPaymentSyncJob(PaymentSyncJobParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}
