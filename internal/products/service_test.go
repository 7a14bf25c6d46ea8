package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/testutil"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type fixture struct {
	client *db.Client
	svc    Service
	seller models.User
	actor  pkgauth.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := testutil.NewDB(t)
	seller := models.User{Name: "Loja da Ana", Email: "ana@example.com", PasswordHash: "x", IsActive: true}
	testutil.MustCreate(t, client, &seller)
	svc, err := NewService(ServiceParams{DB: client, Repo: NewRepository(client.DB())})
	require.NoError(t, err)
	return fixture{client: client, svc: svc, seller: seller, actor: pkgauth.Actor{UserID: seller.ID}}
}

func intPtr(v int) *int { return &v }

func TestCreateWritesProductImagesAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product, err := f.svc.Create(ctx, f.actor, CreateProductRequest{
		Name:          "Caneca",
		Price:         decimal.RequireFromString("29.90"),
		Images:        []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		StockQuantity: intPtr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, product.SellerID)
	assert.True(t, product.IsActive)
	require.NotNil(t, product.Stock)
	assert.Equal(t, 7, product.Stock.Quantity)

	images, err := f.svc.ListImages(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	var stock models.Stock
	require.NoError(t, f.client.DB().First(&stock, "product_id = ?", product.ID).Error)
	assert.Equal(t, 7, stock.Quantity)
}

func TestCreateDuplicateNameForSellerConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CreateProductRequest{Name: "Caneca", Price: decimal.NewFromInt(10), StockQuantity: intPtr(1)}

	_, err := f.svc.Create(ctx, f.actor, req)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.actor, req)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Stock{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "failed create must not leave a stock row")
}

func TestCreateRollsBackOnMissingCategory(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()
	_, err := f.svc.Create(context.Background(), f.actor, CreateProductRequest{
		Name:       "Caneca",
		Price:      decimal.NewFromInt(10),
		CategoryID: &missing,
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateValidatesPricingAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "X", Price: decimal.NewFromInt(5), Discount: decimal.NewFromInt(6)})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = f.svc.Create(ctx, pkgauth.Actor{UserID: uuid.New()}, CreateProductRequest{SellerID: &f.seller.ID, Name: "X", Price: decimal.NewFromInt(5)})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	category := models.Category{Name: "Cozinha", IsActive: true}
	testutil.MustCreate(t, f.client, &category)

	_, err := f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Caneca", Price: decimal.NewFromInt(10), CategoryID: &category.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Prato", Price: decimal.NewFromInt(40)})
	require.NoError(t, err)
	inactive := false
	_, err = f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Copo", Price: decimal.NewFromInt(20), IsActive: &inactive})
	require.NoError(t, err)

	min := decimal.NewFromInt(15)
	page, err := f.svc.List(ctx, ListFilter{MinPrice: &min}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	page, err = f.svc.List(ctx, ListFilter{CategoryName: "cozi"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Caneca", page.Items[0].Name)
	require.NotNil(t, page.Items[0].Category)

	page, err = f.svc.List(ctx, ListFilter{SellerName: "ana", IsActive: &inactive}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Copo", page.Items[0].Name)

	page, err = f.svc.List(ctx, ListFilter{SellerID: &f.seller.ID}, pagination.Params{Skip: 1, Take: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.EqualValues(t, 3, page.Total)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Caneca", Price: decimal.NewFromInt(10), StockQuantity: intPtr(3)})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Prato", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	price := decimal.RequireFromString("12.50")
	updated, err := f.svc.Update(ctx, f.actor, product.ID, PatchProductRequest{Price: &price})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(price))

	taken := "Prato"
	_, err = f.svc.Update(ctx, f.actor, product.ID, PatchProductRequest{Name: &taken})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = f.svc.Update(ctx, pkgauth.Actor{UserID: uuid.New()}, product.ID, PatchProductRequest{Price: &price})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	require.NoError(t, f.svc.Delete(ctx, f.actor, product.ID))
	var stocks int64
	require.NoError(t, f.client.DB().Model(&models.Stock{}).Where("product_id = ?", product.ID).Count(&stocks).Error)
	assert.Zero(t, stocks)

	err = f.svc.Delete(ctx, f.actor, product.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product, err := f.svc.Create(ctx, f.actor, CreateProductRequest{Name: "Caneca", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = f.svc.ListImages(ctx, product.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	img, err := f.svc.AddImage(ctx, f.actor, AddImageRequest{ProductID: product.ID, URL: "https://cdn.example.com/c.png"})
	require.NoError(t, err)
	assert.Equal(t, product.ID, img.ProductID)

	images, err := f.svc.ListImages(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)

	_, err = f.svc.AddImage(ctx, f.actor, AddImageRequest{ProductID: uuid.New(), URL: "https://cdn.example.com/d.png"})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
