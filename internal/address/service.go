package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/viacep"
)

type Service interface {
	Create(ctx context.Context, actor pkgauth.Actor, req CreateAddressRequest) (*models.Address, error)
	List(ctx context.Context, actor pkgauth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[models.Address], error)
	Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchAddressRequest) (*models.Address, error)
	Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error

	CreatePrimary(ctx context.Context, actor pkgauth.Actor, req CreatePrimaryRequest) (*models.PrimaryAddress, error)
	GetPrimary(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) (*models.PrimaryAddress, error)
	UpdatePrimary(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchPrimaryRequest) (*models.PrimaryAddress, error)
	DeletePrimary(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error
}

// PostalLookup resolves a CEP into street-level data.
type PostalLookup interface {
	Lookup(ctx context.Context, cep string) (*viacep.Address, error)
}

type userChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB     txRunner
	Repo   *Repository
	Users  userChecker
	Lookup PostalLookup
}

type service struct {
	db     txRunner
	repo   *Repository
	users  userChecker
	lookup PostalLookup
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("db required")
	case params.Repo == nil:
		return nil, fmt.Errorf("address repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("user checker required")
	case params.Lookup == nil:
		return nil, fmt.Errorf("postal lookup required")
	}
	return &service{db: params.DB, repo: params.Repo, users: params.Users, lookup: params.Lookup}, nil
}

// Create stores a new address for the user. The first address a user saves
// becomes their primary address.
func (s *service) Create(ctx context.Context, actor pkgauth.Actor, req CreateAddressRequest) (*models.Address, error) {
	userID := actor.UserID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		userID = *req.UserID
	}
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot add addresses for another user")
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	cep, err := viacep.NormalizeCEP(req.CEP)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsForUser(ctx, userID, cep)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check address")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cep already saved for this user")
	}

	found, err := s.resolve(ctx, cep)
	if err != nil {
		return nil, err
	}

	addr := &models.Address{
		UserID:       userID,
		PostalCode:   cep,
		Street:       found.Street,
		Number:       strings.TrimSpace(req.Number),
		Complement:   req.Complement,
		Neighborhood: found.Neighborhood,
		City:         found.City,
		State:        found.State,
		Country:      DefaultCountry,
		IsActive:     true,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, addr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
		}
		_, err := txRepo.FindPrimaryByUser(ctx, userID)
		if err == nil {
			return nil
		}
		if !repo.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
		}
		if err := txRepo.CreatePrimary(ctx, &models.PrimaryAddress{UserID: userID, AddressID: addr.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create primary address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// List returns addresses. Non-admin callers only see their own.
func (s *service) List(ctx context.Context, actor pkgauth.Actor, filter ListFilter, params pagination.Params) (pagination.Page[models.Address], error) {
	if !actor.IsAdmin {
		if filter.UserID != nil && *filter.UserID != actor.UserID {
			return pagination.Page[models.Address]{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot list another user's addresses")
		}
		own := actor.UserID
		filter.UserID = &own
	}
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return page, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchAddressRequest) (*models.Address, error) {
	addr, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.CEP != nil && strings.TrimSpace(*req.CEP) != "" {
		cep, err := viacep.NormalizeCEP(*req.CEP)
		if err != nil {
			return nil, err
		}
		if cep != addr.PostalCode {
			found, err := s.resolve(ctx, cep)
			if err != nil {
				return nil, err
			}
			addr.PostalCode = cep
			addr.Street = found.Street
			addr.Neighborhood = found.Neighborhood
			addr.City = found.City
			addr.State = found.State
			addr.Country = DefaultCountry
		}
	}
	if req.Number != nil && strings.TrimSpace(*req.Number) != "" {
		addr.Number = strings.TrimSpace(*req.Number)
	}
	if req.Complement != nil {
		addr.Complement = req.Complement
	}
	if req.IsActive != nil {
		addr.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, addr); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return addr, nil
}

// Delete removes the address. When it was the primary one, the user's next
// oldest address is promoted.
func (s *service) Delete(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	addr, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		primary, err := txRepo.FindPrimaryByAddress(ctx, addr.ID)
		if err != nil && !repo.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
		}
		if primary != nil {
			if err := txRepo.DeletePrimary(ctx, primary.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete primary address")
			}
		}
		if err := txRepo.Delete(ctx, addr.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
		}
		if primary == nil {
			return nil
		}

		next, err := txRepo.FirstOtherForUser(ctx, addr.UserID, addr.ID)
		if repo.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find replacement address")
		}
		if err := txRepo.CreatePrimary(ctx, &models.PrimaryAddress{UserID: addr.UserID, AddressID: next.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote primary address")
		}
		return nil
	})
}

func (s *service) CreatePrimary(ctx context.Context, actor pkgauth.Actor, req CreatePrimaryRequest) (*models.PrimaryAddress, error) {
	if !actor.CanActOn(req.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot set another user's primary address")
	}
	if err := s.ensureUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	addr, err := s.load(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if addr.UserID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address does not belong to the user")
	}

	if _, err := s.repo.FindPrimaryByUser(ctx, req.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a primary address")
	} else if !repo.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
	}

	primary := &models.PrimaryAddress{UserID: req.UserID, AddressID: addr.ID}
	if err := s.repo.CreatePrimary(ctx, primary); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a primary address")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create primary address")
	}
	primary.Address = addr
	return primary, nil
}

func (s *service) GetPrimary(ctx context.Context, actor pkgauth.Actor, userID uuid.UUID) (*models.PrimaryAddress, error) {
	if !actor.CanActOn(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's primary address")
	}
	primary, err := s.repo.FindPrimaryByUser(ctx, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "primary address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
	}
	return primary, nil
}

func (s *service) UpdatePrimary(ctx context.Context, actor pkgauth.Actor, id uuid.UUID, req PatchPrimaryRequest) (*models.PrimaryAddress, error) {
	primary, err := s.loadPrimaryOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.AddressID != nil {
		addr, err := s.load(ctx, *req.AddressID)
		if err != nil {
			return nil, err
		}
		if addr.UserID != primary.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address does not belong to the user")
		}
		primary.AddressID = addr.ID
		primary.Address = addr
	}
	if err := s.repo.SavePrimary(ctx, primary); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update primary address")
	}
	return primary, nil
}

func (s *service) DeletePrimary(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) error {
	primary, err := s.loadPrimaryOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePrimary(ctx, primary.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete primary address")
	}
	return nil
}

func (s *service) resolve(ctx context.Context, cep string) (*viacep.Address, error) {
	found, err := s.lookup.Lookup(ctx, cep)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cep")
		}
		return nil, err
	}
	if strings.TrimSpace(found.Street) == "" && strings.TrimSpace(found.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cep")
	}
	return found, nil
}

func (s *service) ensureUser(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return addr, nil
}

func (s *service) loadOwned(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.Address, error) {
	addr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(addr.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another user")
	}
	return addr, nil
}

func (s *service) loadPrimaryOwned(ctx context.Context, actor pkgauth.Actor, id uuid.UUID) (*models.PrimaryAddress, error) {
	primary, err := s.repo.FindPrimaryByID(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "primary address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary address")
	}
	if !actor.CanActOn(primary.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "primary address belongs to another user")
	}
	return primary, nil
}
