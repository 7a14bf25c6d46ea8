package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type CreateRequest struct {
	UserID   *uuid.UUID           `json:"usuario_id,omitempty"`
	Products []orders.LineRequest `json:"produtos" validate:"required,min=1,dive"`
}

// Service stores draft baskets a user can come back to before paying.
type Service interface {
	Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Checkout, error)
	Get(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Checkout, error)
	Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db   txRunner
	base repo.Base
}

func NewService(db txRunner, conn *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if conn == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: db, base: repo.NewBase(conn)}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Checkout, error) {
	userID := actor.UserID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		userID = *req.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create a checkout for another user")
	}
	if len(req.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}

	draft := &models.Checkout{UserID: userID, Items: make([]models.CheckoutItem, 0, len(req.Products))}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := ensureExists(ctx, tx, &models.User{}, userID, "user"); err != nil {
			return err
		}
		for _, line := range req.Products {
			if line.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "qtd must be >= 1")
			}
			if err := ensureExists(ctx, tx, &models.Product{}, line.ProductID, "product "+line.ProductID.String()); err != nil {
				return err
			}
			draft.Items = append(draft.Items, models.CheckoutItem{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		if err := tx.WithContext(ctx).Create(draft).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Get returns the draft only to its owner or an admin.
func (s *service) Get(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Checkout, error) {
	var draft models.Checkout
	if err := s.base.DB(ctx).Preload("Items").First(&draft, "id = ?", id).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout")
	}
	if !actor.CanActOn(draft.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout belongs to another user")
	}
	return &draft, nil
}

func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	draft, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Delete(&models.CheckoutItem{}, "checkout_id = ?", draft.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout items")
		}
		if err := tx.WithContext(ctx).Delete(&models.Checkout{}, "id = ?", draft.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout")
		}
		return nil
	})
}

func ensureExists(ctx context.Context, tx *gorm.DB, model any, id uuid.UUID, label string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+label)
	}
	if count == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", label)
	}
	return nil
}
