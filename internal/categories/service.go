package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type CreateRequest struct {
	Name     string `json:"nome" validate:"required,max=120"`
	IsActive *bool  `json:"ativo,omitempty"`
}

type PatchRequest struct {
	Name     *string `json:"nome,omitempty" validate:"omitempty,max=120"`
	IsActive *bool   `json:"ativo,omitempty"`
}

type ListFilter struct {
	ID   *uuid.UUID
	Name string
}

// Service manages product categories. Writes are admin-only at the router.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Category, error)
	List(ctx context.Context, filter ListFilter) ([]models.Category, error)
	Update(ctx context.Context, id uuid.UUID, req PatchRequest) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
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

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nome is required")
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	category := &models.Category{Name: name, IsActive: true}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.base.DB(ctx).Create(category).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Category, error) {
	q := s.base.DB(ctx).Model(&models.Category{})
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", repo.Like(filter.Name))
	}
	out := []models.Category{}
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req PatchRequest) (*models.Category, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureNameFree(ctx, name, category.ID); err != nil {
			return nil, err
		}
		category.Name = name
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if err := s.base.DB(ctx).Save(category).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	return category, nil
}

// Delete removes the category. Products keep existing without a category.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.base.DB(ctx).Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach products")
	}
	if err := s.base.DB(ctx).Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	var count int64
	q := s.base.DB(ctx).Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	if err := q.Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category name")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.base.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return &category, nil
}
