package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type CreateRequest struct {
	ProductID uuid.UUID `json:"produto_id" validate:"required"`
	Quantity  int       `json:"qtd_estoque" validate:"gte=0"`
	IsActive  *bool     `json:"ativo,omitempty"`
}

type PatchRequest struct {
	Quantity *int  `json:"qtd_estoque,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool `json:"ativo,omitempty"`
}

// Service manages the one stock row each product may have.
type Service interface {
	Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Stock, error)
	List(ctx context.Context, productID *uuid.UUID) ([]models.Stock, error)
	Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchRequest) (*models.Stock, error)
	Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db       txRunner
	repo     *Repository
	products productLoader
}

func NewService(dbClient txRunner, repo *Repository, products productLoader) (Service, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{db: dbClient, repo: repo, products: products}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Actor, req CreateRequest) (*models.Stock, error) {
	if req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qtd_estoque must be >= 0")
	}
	if err := s.authorize(ctx, actor, req.ProductID); err != nil {
		return nil, err
	}

	existing, err := s.repo.List(ctx, &req.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock")
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a stock record")
	}

	row := &models.Stock{ProductID: req.ProductID, Quantity: req.Quantity, IsActive: true}
	if req.IsActive != nil {
		row.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a stock record")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, productID *uuid.UUID) ([]models.Stock, error) {
	out, err := s.repo.List(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock")
	}
	return out, nil
}

// Update locks the row and writes only the patched columns. A quantity in
// the patch replaces the current value; an activation-only patch leaves
// reservations made since the caller last read the row intact.
func (s *service) Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchRequest) (*models.Stock, error) {
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qtd_estoque must be >= 0")
	}
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return nil, err
	}

	var row *models.Stock
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		locked, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock stock")
		}

		columns := map[string]any{}
		if req.Quantity != nil {
			columns["quantity"] = *req.Quantity
			locked.Quantity = *req.Quantity
		}
		if req.IsActive != nil {
			columns["is_active"] = *req.IsActive
			locked.IsActive = *req.IsActive
		}
		if len(columns) > 0 {
			if err := txRepo.UpdateColumns(ctx, id, columns); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
			}
		}
		row = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	row, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, row.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete stock")
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Stock, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if err := s.authorize(ctx, actor, row.ProductID); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) authorize(ctx context.Context, actor pkgauth.Actor, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !actor.CanActOn(product.SellerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return nil
}
