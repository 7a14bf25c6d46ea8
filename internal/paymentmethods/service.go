package paymentmethods

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
	Name     string `json:"nome" validate:"required,max=80"`
	IsActive *bool  `json:"ativo,omitempty"`
}

type PatchRequest struct {
	Name     *string `json:"nome,omitempty" validate:"omitempty,max=80"`
	IsActive *bool   `json:"ativo,omitempty"`
}

// Service manages the payment method catalog shown at checkout.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.PaymentMethod, error)
	List(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	Update(ctx context.Context, id uuid.UUID, req PatchRequest) (*models.PaymentMethod, error)
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

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.PaymentMethod, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nome is required")
	}
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	method := &models.PaymentMethod{Name: name, IsActive: true}
	if req.IsActive != nil {
		method.IsActive = *req.IsActive
	}
	if err := s.base.DB(ctx).Create(method).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment method already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment method")
	}
	return method, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	q := s.base.DB(ctx).Model(&models.PaymentMethod{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	out := []models.PaymentMethod{}
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := s.base.DB(ctx).First(&method, "id = ?", id).Error; err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	return &method, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req PatchRequest) (*models.PaymentMethod, error) {
	method, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureNameFree(ctx, name, method.ID); err != nil {
			return nil, err
		}
		method.Name = name
	}
	if req.IsActive != nil {
		method.IsActive = *req.IsActive
	}
	if err := s.base.DB(ctx).Save(method).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment method")
	}
	return method, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.base.DB(ctx).Delete(&models.PaymentMethod{}, "id = ?", id).Error; err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment method is in use")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment method")
	}
	return nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	var count int64
	q := s.base.DB(ctx).Model(&models.PaymentMethod{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	if err := q.Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment method name")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment method already exists")
	}
	return nil
}
