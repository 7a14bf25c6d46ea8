package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/viacep"
)

type stubLookup struct {
	calls int
	byCEP map[string]viacep.Address
}

func (s *stubLookup) Lookup(ctx context.Context, cep string) (*viacep.Address, error) {
	s.calls++
	addr, ok := s.byCEP[cep]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cep not found")
	}
	return &addr, nil
}

type fixture struct {
	svc    Service
	repo   *Repository
	lookup *stubLookup
	user   models.User
	actor  pkgauth.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := testutil.NewDB(t)
	user := models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", IsActive: true}
	testutil.MustCreate(t, client, &user)

	lookup := &stubLookup{byCEP: map[string]viacep.Address{
		"01001000": {PostalCode: "01001-000", Street: "Praça da Sé", Neighborhood: "Sé", City: "São Paulo", State: "SP"},
		"20040002": {PostalCode: "20040-002", Street: "Rua da Assembleia", Neighborhood: "Centro", City: "Rio de Janeiro", State: "RJ"},
	}}
	repository := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		DB:     client,
		Repo:   repository,
		Users:  users.NewRepository(client.DB()),
		Lookup: lookup,
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repository, lookup: lookup, user: user, actor: pkgauth.Actor{UserID: user.ID}}
}

func TestCreateEnrichesAndSetsFirstPrimary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addr, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001-000", Number: "100"})
	require.NoError(t, err)
	assert.Equal(t, "01001000", addr.PostalCode)
	assert.Equal(t, "Praça da Sé", addr.Street)
	assert.Equal(t, "São Paulo", addr.City)
	assert.Equal(t, DefaultCountry, addr.Country)

	primary, err := f.svc.GetPrimary(ctx, f.actor, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, primary.AddressID)
	require.NotNil(t, primary.Address)

	second, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "20040002", Number: "5"})
	require.NoError(t, err)
	primary, err = f.svc.GetPrimary(ctx, f.actor, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, addr.ID, primary.AddressID, "second address must not replace the primary")
	assert.NotEqual(t, second.ID, primary.AddressID)
}

func TestCreateRejectsDuplicateAndUnknownCEP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001000", Number: "1"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001-000", Number: "2"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "99999999", Number: "2"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "123", Number: "2"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	other := uuid.New()
	_, err = f.svc.Create(ctx, f.actor, CreateAddressRequest{UserID: &other, CEP: "20040002", Number: "2"})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, pkgauth.Actor{UserID: uuid.New(), IsAdmin: true}, CreateAddressRequest{UserID: &other, CEP: "20040002", Number: "2"})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestUpdateReLooksUpOnCEPChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addr, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001000", Number: "1"})
	require.NoError(t, err)
	calls := f.lookup.calls

	number := "42"
	updated, err := f.svc.Update(ctx, f.actor, addr.ID, PatchAddressRequest{Number: &number})
	require.NoError(t, err)
	assert.Equal(t, "42", updated.Number)
	assert.Equal(t, calls, f.lookup.calls, "no lookup without a cep change")

	cep := "20040-002"
	updated, err = f.svc.Update(ctx, f.actor, addr.ID, PatchAddressRequest{CEP: &cep})
	require.NoError(t, err)
	assert.Equal(t, "Rio de Janeiro", updated.City)
	assert.Equal(t, "RJ", updated.State)
}

func TestDeletePromotesNextAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001000", Number: "1"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "20040002", Number: "2"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.actor, first.ID))

	primary, err := f.svc.GetPrimary(ctx, f.actor, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, primary.AddressID)

	require.NoError(t, f.svc.Delete(ctx, f.actor, second.ID))
	_, err = f.svc.GetPrimary(ctx, f.actor, f.user.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = f.svc.Delete(ctx, f.actor, second.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestPrimaryAddressLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001000", Number: "1"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "20040002", Number: "2"})
	require.NoError(t, err)

	_, err = f.svc.CreatePrimary(ctx, f.actor, CreatePrimaryRequest{UserID: f.user.ID, AddressID: second.ID})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err), "one primary address per user")

	primary, err := f.svc.GetPrimary(ctx, f.actor, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, primary.AddressID)

	updated, err := f.svc.UpdatePrimary(ctx, f.actor, primary.ID, PatchPrimaryRequest{AddressID: &second.ID})
	require.NoError(t, err)
	assert.Equal(t, second.ID, updated.AddressID)

	require.NoError(t, f.svc.DeletePrimary(ctx, f.actor, primary.ID))
	created, err := f.svc.CreatePrimary(ctx, f.actor, CreatePrimaryRequest{UserID: f.user.ID, AddressID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, created.AddressID)

	_, err = f.svc.GetPrimary(ctx, pkgauth.Actor{UserID: uuid.New()}, f.user.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestListScopesNonAdminsToOwnAddresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.actor, CreateAddressRequest{CEP: "01001000", Number: "1"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.actor, ListFilter{City: "paulo"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = f.svc.List(ctx, pkgauth.Actor{UserID: uuid.New()}, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.svc.List(ctx, pkgauth.Actor{UserID: uuid.New(), IsAdmin: true}, ListFilter{State: "sp"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
