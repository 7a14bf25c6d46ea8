package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultSyncAfter = 15 * time.Minute
	defaultSyncLimit = 100
)

type pendingSyncer interface {
	SyncPending(ctx context.Context, cutoff time.Time, limit int) (payments.SyncSummary, error)
}

type PaymentSyncJobParams struct {
	Logger   *logger.Logger
	Payments pendingSyncer
	After    time.Duration
	Limit    int
}

// NewPaymentSyncJob polls the gateway for payments still pending after the
// grace period, for when a webhook never arrived.
func NewPaymentSyncJob(params PaymentSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment syncer required")
	}
	after := params.After
	if after <= 0 {
		after = defaultSyncAfter
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSyncLimit
	}
	return &paymentSyncJob{
		logg:     params.Logger,
		payments: params.Payments,
		after:    after,
		limit:    limit,
		now:      time.Now,
	}, nil
}

type paymentSyncJob struct {
	logg     *logger.Logger
	payments pendingSyncer
	after    time.Duration
	limit    int
	now      func() time.Time
}

func (j *paymentSyncJob) Name() string { return "payment-sync" }

func (j *paymentSyncJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	summary, err := j.payments.SyncPending(ctx, cutoff, j.limit)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"checked":   summary.Checked,
		"applied":   summary.Applied,
		"unchanged": summary.Unchanged,
		"ignored":   summary.Ignored,
		"failed":    summary.Failed,
	})
	if err != nil {
		j.logg.Warn(logCtx, "payment sync finished with failures")
		return fmt.Errorf("payment sync: %w", err)
	}
	j.logg.Info(logCtx, "payment sync complete")
	return nil
}
