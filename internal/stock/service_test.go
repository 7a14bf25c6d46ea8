package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/testutil"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestStockLifecycle(t *testing.T) {
	client := testutil.NewDB(t)
	seller := models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", IsActive: true}
	testutil.MustCreate(t, client, &seller)
	product := models.Product{SellerID: seller.ID, Name: "Caneca", Price: decimal.NewFromInt(10), IsActive: true}
	testutil.MustCreate(t, client, &product)

	repository := NewRepository(client.DB())
	svc, err := NewService(client, repository, products.NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()
	owner := pkgauth.Actor{UserID: seller.ID}

	row, err := svc.Create(ctx, owner, CreateRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)
	assert.True(t, row.IsActive)

	_, err = svc.Create(ctx, owner, CreateRequest{ProductID: product.ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err), "one stock row per product")

	_, err = svc.Create(ctx, owner, CreateRequest{ProductID: uuid.New(), Quantity: 1})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	qty := 9
	_, err = svc.Update(ctx, pkgauth.Actor{UserID: uuid.New()}, row.ID, PatchRequest{Quantity: &qty})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	updated, err := svc.Update(ctx, owner, row.ID, PatchRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Quantity)

	require.NoError(t, repository.AdjustQuantity(ctx, row.ID, -4))
	locked, err := repository.FindByProductForUpdate(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, locked.Quantity)

	list, err := svc.List(ctx, &product.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, owner, row.ID))
	_, err = svc.Update(ctx, owner, row.ID, PatchRequest{Quantity: &qty})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

type reservingLoader struct {
	products *products.Repository
	reserve  func()
}

func (l *reservingLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if l.reserve != nil {
		l.reserve()
		l.reserve = nil
	}
	return l.products.FindByID(ctx, id)
}

func TestStockDeactivateKeepsConcurrentReservation(t *testing.T) {
	client := testutil.NewDB(t)
	seller := models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", IsActive: true}
	testutil.MustCreate(t, client, &seller)
	product := models.Product{SellerID: seller.ID, Name: "Caneca", Price: decimal.NewFromInt(10), IsActive: true}
	testutil.MustCreate(t, client, &product)
	row := models.Stock{ProductID: product.ID, Quantity: 5, IsActive: true}
	testutil.MustCreate(t, client, &row)

	ctx := context.Background()
	repository := NewRepository(client.DB())
	loader := &reservingLoader{products: products.NewRepository(client.DB())}
	loader.reserve = func() {
		require.NoError(t, repository.AdjustQuantity(ctx, row.ID, -3))
	}
	svc, err := NewService(client, repository, loader)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, pkgauth.Actor{UserID: seller.ID}, row.ID, PatchRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 2, updated.Quantity)

	stored, err := repository.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity, "reservation survives the patch")
	assert.False(t, stored.IsActive)
}
