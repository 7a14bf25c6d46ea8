package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists addresses and primary-address pointers.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	return r.DB(ctx).Create(addr).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.DB(ctx).First(&addr, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// ExistsForUser reports whether the user already saved cep.
func (r *Repository) ExistsForUser(ctx context.Context, userID uuid.UUID, cep string) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Address{}).
		Where("user_id = ? AND postal_code = ?", userID, cep).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.Address], error) {
	q := r.DB(ctx).Model(&models.Address{})
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CEP != "" {
		q = q.Where("postal_code LIKE ?", repo.Like(filter.CEP))
	}
	if filter.City != "" {
		q = q.Where("LOWER(city) LIKE ?", repo.Like(filter.City))
	}
	if filter.State != "" {
		q = q.Where("LOWER(state) LIKE ?", repo.Like(filter.State))
	}
	return repo.FindPage[models.Address](q, params, "created_at ASC")
}

func (r *Repository) Save(ctx context.Context, addr *models.Address) error {
	return r.DB(ctx).Save(addr).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Address{}, "id = ?", id).Error
}

// FirstOtherForUser returns the oldest address of userID other than excludeID.
func (r *Repository) FirstOtherForUser(ctx context.Context, userID, excludeID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.DB(ctx).
		Where("user_id = ? AND id <> ?", userID, excludeID).
		Order("created_at ASC").
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (r *Repository) CreatePrimary(ctx context.Context, p *models.PrimaryAddress) error {
	return r.DB(ctx).Create(p).Error
}

func (r *Repository) FindPrimaryByID(ctx context.Context, id uuid.UUID) (*models.PrimaryAddress, error) {
	var p models.PrimaryAddress
	if err := r.DB(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPrimaryByUser loads the user's primary pointer with its address.
func (r *Repository) FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*models.PrimaryAddress, error) {
	var p models.PrimaryAddress
	if err := r.DB(ctx).Preload("Address").First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindPrimaryByAddress(ctx context.Context, addressID uuid.UUID) (*models.PrimaryAddress, error) {
	var p models.PrimaryAddress
	if err := r.DB(ctx).First(&p, "address_id = ?", addressID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SavePrimary(ctx context.Context, p *models.PrimaryAddress) error {
	return r.DB(ctx).Omit("Address").Save(p).Error
}

func (r *Repository) DeletePrimary(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.PrimaryAddress{}, "id = ?", id).Error
}
