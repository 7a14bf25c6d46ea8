package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubLookup struct {
	products []models.Product
	err      error
}

func (s stubLookup) FindByIDs(context.Context, []uuid.UUID) ([]models.Product, error) {
	return s.products, s.err
}

func TestAssembleTotals(t *testing.T) {
	a := models.Product{ID: uuid.New(), Name: "A", Price: decimal.NewFromInt(10)}
	b := models.Product{ID: uuid.New(), Name: "B", Price: decimal.NewFromInt(5)}
	userID := uuid.New()

	order, err := Assemble(context.Background(), stubLookup{products: []models.Product{a, b}}, userID, []LineRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}, decimal.NewFromInt(3))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(25)), order.Subtotal.String())
	assert.True(t, order.Total.Equal(decimal.NewFromInt(28)), order.Total.String())
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "A", order.Lines[0].ProductName)
	assert.True(t, order.Lines[0].UnitPrice.Equal(a.Price))
}

func TestAssembleValidation(t *testing.T) {
	p := models.Product{ID: uuid.New(), Name: "A", Price: decimal.NewFromInt(10)}
	lookup := stubLookup{products: []models.Product{p}}
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name  string
		lines []LineRequest
		fee   decimal.Decimal
		code  pkgerrors.Code
	}{
		{"no lines", nil, decimal.Zero, pkgerrors.CodeValidation},
		{"zero qty", []LineRequest{{ProductID: p.ID, Quantity: 0}}, decimal.Zero, pkgerrors.CodeValidation},
		{"negative fee", []LineRequest{{ProductID: p.ID, Quantity: 1}}, decimal.NewFromInt(-1), pkgerrors.CodeValidation},
		{"missing product", []LineRequest{{ProductID: uuid.New(), Quantity: 1}}, decimal.Zero, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(ctx, lookup, userID, tc.lines, tc.fee)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}

	_, err := Assemble(ctx, stubLookup{err: errors.New("down")}, userID, []LineRequest{{ProductID: p.ID, Quantity: 1}}, decimal.Zero)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}
