package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	client := testutil.NewDB(t)
	repository := NewRepository(client.DB())
	svc, err := NewService(repository, testPasswordConfig())
	require.NoError(t, err)
	return svc, repository
}

func createUser(t *testing.T, svc Service, email string) *UserDTO {
	t.Helper()
	user, err := svc.Create(context.Background(), CreateUserRequest{
		Name:     "Ana",
		Email:    email,
		Password: "super-secret-1",
	})
	require.NoError(t, err)
	return user
}

func TestCreateHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc, repository := newTestService(t)

	user := createUser(t, svc, "  Ana@Example.COM ")
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)
	assert.Equal(t, []string{"User"}, user.Roles)

	stored, err := repository.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-1", stored.PasswordHash)
	ok, err := security.VerifyPassword("super-secret-1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	createUser(t, svc, "ana@example.com")

	_, err := svc.Create(context.Background(), CreateUserRequest{Name: "Other", Email: "ANA@example.com", Password: "another-pass-1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), CreateUserRequest{Name: "Ana", Email: "ana@example.com", Password: "abc"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListFilters(t *testing.T) {
	svc, repository := newTestService(t)
	ctx := context.Background()
	ana := createUser(t, svc, "ana@example.com")
	createUser(t, svc, "bruno@example.com")

	admin := true
	stored, err := repository.FindByID(ctx, ana.ID)
	require.NoError(t, err)
	stored.IsAdmin = true
	require.NoError(t, repository.Save(ctx, stored))

	page, err := svc.List(ctx, ListFilter{Email: "BRUNO"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bruno@example.com", page.Items[0].Email)

	page, err = svc.List(ctx, ListFilter{IsAdmin: &admin}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ana.ID, page.Items[0].ID)

	page, err = svc.List(ctx, ListFilter{}, pagination.Params{Take: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.EqualValues(t, 2, page.Total)
}

func TestUpdateSelfOrAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ana := createUser(t, svc, "ana@example.com")
	bruno := createUser(t, svc, "bruno@example.com")

	name := "Ana Maria"
	updated, err := svc.Update(ctx, pkgauth.Actor{UserID: ana.ID}, ana.ID, PatchUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", updated.Name)

	_, err = svc.Update(ctx, pkgauth.Actor{UserID: bruno.ID}, ana.ID, PatchUserRequest{Name: &name})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	promote := true
	_, err = svc.Update(ctx, pkgauth.Actor{UserID: ana.ID}, ana.ID, PatchUserRequest{IsAdmin: &promote})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	updated, err = svc.Update(ctx, pkgauth.Actor{UserID: uuid.New(), IsAdmin: true}, ana.ID, PatchUserRequest{IsAdmin: &promote})
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)

	taken := "bruno@example.com"
	_, err = svc.Update(ctx, pkgauth.Actor{UserID: ana.ID}, ana.ID, PatchUserRequest{Email: &taken})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ana := createUser(t, svc, "ana@example.com")

	err := svc.Delete(ctx, pkgauth.Actor{UserID: uuid.New()}, ana.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, pkgauth.Actor{UserID: ana.ID}, ana.ID))

	_, err = svc.Get(ctx, ana.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	err = svc.Delete(ctx, pkgauth.Actor{UserID: ana.ID, IsAdmin: true}, ana.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
