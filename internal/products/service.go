package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service manages seller listings.
type Service interface {
	Create(ctx context.Context, actor pkgauth.Actor, req CreateProductRequest) (*models.Product, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Product], error)
	Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchProductRequest) (*models.Product, error)
	Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
	AddImage(ctx context.Context, actor pkgauth.Actor, req AddImageRequest) (*models.ProductImage, error)
	ListImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB   txRunner
	Repo *Repository
}

type service struct {
	db   txRunner
	repo *Repository
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{db: params.DB, repo: params.Repo}, nil
}

func (s *service) Create(ctx context.Context, actor pkgauth.Actor, req CreateProductRequest) (*models.Product, error) {
	sellerID := actor.UserID
	if req.SellerID != nil && *req.SellerID != uuid.Nil {
		sellerID = *req.SellerID
	}
	if !actor.CanActOn(sellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot create products for another seller")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nome is required")
	}
	if err := validatePricing(req.Price, req.Discount); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	product := &models.Product{
		SellerID:    sellerID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Discount:    req.Discount,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		IsActive:    active,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var sellers int64
		if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", sellerID).Count(&sellers).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller")
		}
		if sellers == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		if product.CategoryID != nil {
			var categories int64
			if err := tx.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *product.CategoryID).Count(&categories).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
			}
			if categories == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
		}

		exists, err := txRepo.ExistsForSeller(ctx, sellerID, name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product name")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "seller already has a product with this name")
		}

		if err := txRepo.Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "seller already has a product with this name")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}

		for _, url := range req.Images {
			url = strings.TrimSpace(url)
			if url == "" {
				continue
			}
			img := models.ProductImage{ProductID: product.ID, URL: url}
			if err := txRepo.AddImage(ctx, &img); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product image")
			}
			product.Images = append(product.Images, img)
		}

		if req.StockQuantity != nil {
			stock := &models.Stock{ProductID: product.ID, Quantity: *req.StockQuantity, IsActive: true}
			if err := tx.WithContext(ctx).Create(stock).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stock")
			}
			product.Stock = stock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Product], error) {
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchProductRequest) (*models.Product, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		if name != product.Name {
			exists, err := s.repo.ExistsForSeller(ctx, product.SellerID, name)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product name")
			}
			if exists {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already has a product with this name")
			}
			product.Name = name
		}
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Discount != nil {
		product.Discount = *req.Discount
	}
	if err := validatePricing(product.Price, product.Discount); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}

	if err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already has a product with this name")
		}
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, product.ID)
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by existing orders")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AddImage(ctx context.Context, actor pkgauth.Actor, req AddImageRequest) (*models.ProductImage, error) {
	product, err := s.loadOwned(ctx, actor, req.ProductID)
	if err != nil {
		return nil, err
	}
	img := &models.ProductImage{ProductID: product.ID, URL: strings.TrimSpace(req.URL)}
	if img.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "imagem is required")
	}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add product image")
	}
	return img, nil
}

// ListImages returns the product's extra images. NotFound when there are none.
func (s *service) ListImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	images, err := s.repo.ListImages(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product images")
	}
	if len(images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no images for this product")
	}
	return images, nil
}

func (s *service) loadOwned(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !actor.CanActOn(product.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}

func validatePricing(price, discount decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "valor must be >= 0")
	}
	if discount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "desconto must be >= 0")
	}
	if discount.GreaterThan(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "desconto cannot exceed valor")
	}
	return nil
}
