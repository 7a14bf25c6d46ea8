package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists products and their images.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Omit("Seller", "Category", "Stock", "Images").Create(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads every product in ids. Missing ids are simply absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ExistsForSeller reports whether the seller already lists a product named name.
func (r *Repository) ExistsForSeller(ctx context.Context, sellerID uuid.UUID, name string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Product{}).
		Where("seller_id = ? AND name = ?", sellerID, name).
		Count(&count).Error
	return count > 0, err
}

// List returns products with category and stock preloaded.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Product], error) {
	q := r.DB(ctx).Model(&models.Product{}).Preload("Category").Preload("Stock")
	if filter.ID != nil {
		q = q.Where("products.id = ?", *filter.ID)
	}
	if filter.SellerID != nil {
		q = q.Where("products.seller_id = ?", *filter.SellerID)
	}
	if filter.IsActive != nil {
		q = q.Where("products.is_active = ?", *filter.IsActive)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(products.name) LIKE ?", repo.Like(filter.Name))
	}
	if filter.SellerName != "" {
		sellers := r.DB(ctx).Model(&models.User{}).Select("id").Where("LOWER(name) LIKE ?", repo.Like(filter.SellerName))
		q = q.Where("products.seller_id IN (?)", sellers)
	}
	if filter.CategoryName != "" {
		categories := r.DB(ctx).Model(&models.Category{}).Select("id").Where("LOWER(name) LIKE ?", repo.Like(filter.CategoryName))
		q = q.Where("products.category_id IN (?)", categories)
	}
	if filter.MinPrice != nil {
		q = q.Where("products.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("products.price <= ?", *filter.MaxPrice)
	}
	return repo.FindPage[models.Product](q, params, "products.created_at DESC")
}

func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Omit("Seller", "Category", "Stock", "Images").Save(product).Error
}

// Delete removes the product together with its images and stock row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.DB(ctx)
	if err := db.Delete(&models.ProductImage{}, "product_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.Stock{}, "product_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&models.Product{}, "id = ?", id).Error
}

func (r *Repository) AddImage(ctx context.Context, img *models.ProductImage) error {
	return r.DB(ctx).Create(img).Error
}

func (r *Repository) ListImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var out []models.ProductImage
	err := r.DB(ctx).Where("product_id = ?", productID).Order("created_at ASC").Find(&out).Error
	return out, err
}
