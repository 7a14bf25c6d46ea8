package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// LineRequest is one product selected at checkout.
type LineRequest struct {
	ProductID uuid.UUID `json:"produto_id" validate:"required"`
	Quantity  int       `json:"qtd" validate:"required,gte=1"`
}

// ProductLookup resolves the products referenced by checkout lines.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Assemble prices lines against the current catalog and returns an unsaved
// pending order. It never reads or writes cart or stock.
func Assemble(ctx context.Context, lookup ProductLookup, userID uuid.UUID, lines []LineRequest, shippingFee decimal.Decimal) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "usuario_id is required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product is required")
	}
	if shippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "frete must be >= 0")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "qtd must be >= 1").
				WithDetails(map[string]any{"produto_id": line.ProductID})
		}
		ids = append(ids, line.ProductID)
	}

	found, err := lookup.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	order := &models.Order{
		UserID:      userID,
		Status:      enums.OrderStatusPending,
		ShippingFee: shippingFee,
		Lines:       make([]models.OrderLine, 0, len(lines)),
	}
	subtotal := decimal.Zero
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", line.ProductID)
		}
		ol := models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		}
		subtotal = subtotal.Add(ol.LineTotal())
		order.Lines = append(order.Lines, ol)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(shippingFee)
	return order, nil
}
