package payments

import (
	"context"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

type squareAPI interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// SquareGateway charges card nonces through the Square Payments API.
type SquareGateway struct {
	api squareAPI
}

func NewSquareGateway(api squareAPI) *SquareGateway {
	return &SquareGateway{api: api}
}

func (g *SquareGateway) Name() enums.PaymentGateway {
	return enums.PaymentGatewaySquare
}

func (g *SquareGateway) Charge(ctx context.Context, charge Charge) (*GatewayPayment, error) {
	payment, err := g.api.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    square.ToCents(charge.Amount),
		SourceID:       charge.CardToken,
		IdempotencyKey: charge.IdempotencyKey,
		Note:           charge.Description,
		ReferenceID:    charge.ExternalReference,
		BuyerEmail:     charge.Payer.Email,
	})
	if err != nil {
		return nil, err
	}
	return fromSquare(payment), nil
}

func (g *SquareGateway) Fetch(ctx context.Context, gatewayPaymentID string) (*GatewayPayment, error) {
	payment, err := g.api.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return fromSquare(payment), nil
}

func fromSquare(p *sq.Payment) *GatewayPayment {
	if p == nil {
		return &GatewayPayment{}
	}
	out := &GatewayPayment{
		ID:                deref(p.GetID()),
		Status:            enums.PaymentStatus(deref(p.GetStatus())),
		Method:            string(enums.PaymentMethodTypeCard),
		ExternalReference: deref(p.GetReferenceID()),
		RedirectURL:       deref(p.GetReceiptURL()),
	}
	if out.Status == enums.PaymentStatusSquareCompleted {
		if ts, err := time.Parse(time.RFC3339, deref(p.GetUpdatedAt())); err == nil {
			out.ApprovedAt = &ts
		}
	}
	return out
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
