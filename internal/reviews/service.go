package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	MinRating = 1
	MaxRating = 5
)

type CreateRequest struct {
	ProductID uuid.UUID `json:"produto_id" validate:"required"`
	Rating    int       `json:"numero"`
	Comment   *string   `json:"comentario,omitempty" validate:"omitempty,max=2000"`
}

// Average is the mean rating of a product's active reviews.
type Average struct {
	ProductID uuid.UUID `json:"produto_id"`
	Average   float64   `json:"media"`
	Count     int64     `json:"total"`
}

type Service interface {
	Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	AverageForProduct(ctx context.Context, productID uuid.UUID) (*Average, error)
}

type service struct {
	base repo.Base
}

func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{base: repo.NewBase(conn)}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Review, error) {
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidState, "rating must be between %d and %d", MinRating, MaxRating)
	}
	if err := s.ensureProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}
	review := &models.Review{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		IsActive:  true,
	}
	if !actor.IsZero() {
		id := actor.UserID
		review.UserID = &id
	}
	if err := s.base.DB(ctx).Create(review).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return review, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	out := []models.Review{}
	err := s.base.DB(ctx).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return out, nil
}

// AverageForProduct returns 0 when the product has no active reviews.
func (s *service) AverageForProduct(ctx context.Context, productID uuid.UUID) (*Average, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	var row struct {
		Total int64
		Sum   int64
	}
	err := s.base.DB(ctx).Model(&models.Review{}).
		Select("COUNT(*) AS total, COALESCE(SUM(rating), 0) AS sum").
		Where("product_id = ? AND is_active = ?", productID, true).
		Scan(&row).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "average reviews")
	}
	avg := &Average{ProductID: productID, Count: row.Total}
	if row.Total > 0 {
		avg.Average = float64(row.Sum) / float64(row.Total)
	}
	return avg, nil
}

func (s *service) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	var count int64
	if err := s.base.DB(ctx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
