package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes read access to a user's orders.
type Service interface {
	Get(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) ([]models.Order, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.CanActOn(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		userID = actor.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's orders")
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}
