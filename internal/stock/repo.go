package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists stock rows. Cart mutations use the locking reads.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, s *models.Stock) error {
	return r.DB(ctx).Create(s).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var s models.Stock
	if err := r.DB(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByIDForUpdate loads a stock row with a row lock.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var s models.Stock
	if err := db.ForUpdate(r.DB(ctx)).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByProductForUpdate loads the product's stock row with a row lock.
func (r *Repository) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) (*models.Stock, error) {
	var s models.Stock
	if err := db.ForUpdate(r.DB(ctx)).First(&s, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) List(ctx context.Context, productID *uuid.UUID) ([]models.Stock, error) {
	q := r.DB(ctx).Model(&models.Stock{})
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	out := []models.Stock{}
	err := q.Order("created_at ASC").Find(&out).Error
	return out, err
}

// AdjustQuantity adds delta (which may be negative) to the row's quantity.
func (r *Repository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return r.DB(ctx).Model(&models.Stock{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta)).Error
}

// UpdateColumns writes only the given columns so concurrent reservations on
// quantity are not overwritten.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.DB(ctx).Model(&models.Stock{}).Where("id = ?", id).Updates(columns).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Stock{}, "id = ?", id).Error
}
