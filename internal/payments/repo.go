package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists payments and their product lines.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

// Create inserts the payment and its product lines.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB(ctx).Preload("Products").First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate locks the payment row for reconciliation.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.DB(ctx)).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateGatewayState writes the mirrored gateway fields.
func (r *Repository) UpdateGatewayState(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"gateway_payment_id": payment.GatewayPaymentID,
			"status":             payment.Status,
			"status_detail":      payment.StatusDetail,
			"paid_at":            payment.PaidAt,
			"updated_at":         time.Now().UTC(),
		}).Error
}

// ListStalePending returns payments created before cutoff that the gateway
// has acknowledged but not yet settled (pending, in_process, authorized...).
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	out := []models.Payment{}
	q := r.DB(ctx).
		Where("status IN ? AND gateway_payment_id IS NOT NULL AND gateway_payment_id <> '' AND created_at < ?",
			enums.UnsettledPaymentStatuses(), cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
