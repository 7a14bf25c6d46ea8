package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type AddItemRequest struct {
	UserID    *uuid.UUID `json:"usuario_id,omitempty"`
	ProductID uuid.UUID  `json:"produto_id" validate:"required"`
	Quantity  int        `json:"qtd" validate:"required,gte=1"`
}

type UpdateItemRequest struct {
	Quantity *int  `json:"qtd,omitempty" validate:"omitempty,gte=1"`
	IsActive *bool `json:"ativo,omitempty"`
}

// Service reserves stock as lines enter the cart and releases it as they
// shrink or leave.
type Service interface {
	AddItem(ctx context.Context, actor pkgauth.Actor, req AddItemRequest) (*models.CartItem, error)
	RemoveItem(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
	UpdateItem(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req UpdateItemRequest) (*models.CartItem, error)
	ListItems(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) ([]models.CartItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ServiceParams struct {
	DB       txRunner
	Repo     *Repository
	Stock    *stock.Repository
	Products *products.Repository
	Users    userChecker
}

type service struct {
	db       txRunner
	repo     *Repository
	stock    *stock.Repository
	products *products.Repository
	users    userChecker
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user checker required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		stock:    params.Stock,
		products: params.Products,
		users:    params.Users,
	}, nil
}

func (s *service) AddItem(ctx context.Context, actor pkgauth.Actor, req AddItemRequest) (*models.CartItem, error) {
	userID := actor.UserID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		userID = *req.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot modify another user's cart")
	}
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qtd must be >= 1")
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	var item *models.CartItem
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)

		if _, err := s.products.WithTx(tx).FindByID(ctx, req.ProductID); err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		dup, err := cartRepo.ExistsForUserProduct(ctx, userID, req.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart line")
		}
		if dup {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already in cart")
		}

		row, err := lockStock(ctx, stockRepo, req.ProductID)
		if err != nil {
			return err
		}
		if row.Quantity == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "product out of stock")
		}
		if req.Quantity > row.Quantity {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "quantity exceeds available stock").
				WithDetails(map[string]any{"available": row.Quantity})
		}

		item = &models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity, IsActive: true}
		if err := cartRepo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		if err := stockRepo.AdjustQuantity(ctx, row.ID, -req.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes the line and returns its quantity to stock when the
// product still has a stock row.
func (s *service) RemoveItem(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		item, err := loadOwned(ctx, cartRepo, actor, id)
		if err != nil {
			return err
		}

		row, err := s.stock.WithTx(tx).FindByProductForUpdate(ctx, item.ProductID)
		switch {
		case err == nil:
			if err := s.stock.WithTx(tx).AdjustQuantity(ctx, row.ID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
			}
		case !repo.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock")
		}

		if err := cartRepo.Delete(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	})
}

// UpdateItem moves the difference between the new and current quantity
// between the line and stock.
func (s *service) UpdateItem(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req UpdateItemRequest) (*models.CartItem, error) {
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qtd must be >= 1")
	}

	var item *models.CartItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)

		var err error
		item, err = loadOwned(ctx, cartRepo, actor, id)
		if err != nil {
			return err
		}

		if req.Quantity != nil && *req.Quantity != item.Quantity {
			delta := *req.Quantity - item.Quantity
			row, err := lockStock(ctx, stockRepo, item.ProductID)
			if err != nil {
				return err
			}
			if delta > 0 && delta > row.Quantity {
				return pkgerrors.New(pkgerrors.CodeInvalidState, "quantity exceeds available stock").
					WithDetails(map[string]any{"available": row.Quantity})
			}
			if err := stockRepo.AdjustQuantity(ctx, row.ID, -delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
			}
			item.Quantity = *req.Quantity
		}
		if req.IsActive != nil {
			item.IsActive = *req.IsActive
		}
		if err := cartRepo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) ([]models.CartItem, error) {
	if userID == uuid.Nil {
		userID = actor.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's cart")
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return items, nil
}

func loadOwned(ctx context.Context, cartRepo *Repository, actor pkgauth.Actor, id uuid.UUID) (*models.CartItem, error) {
	item, err := cartRepo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if !actor.CanActOn(item.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another user")
	}
	return item, nil
}

func lockStock(ctx context.Context, stockRepo *stock.Repository, productID uuid.UUID) (*models.Stock, error) {
	row, err := stockRepo.FindByProductForUpdate(ctx, productID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "product has no stock record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock")
	}
	return row, nil
}
