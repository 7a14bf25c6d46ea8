package payments

import (
	"context"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/mercadopago"
)

type mercadoPagoAPI interface {
	CreatePayment(ctx context.Context, req mercadopago.CreatePaymentRequest, idempotencyKey string) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
	ListPaymentMethods(ctx context.Context) ([]mercadopago.PaymentMethod, error)
}

// MercadoPagoGateway adapts the Mercado Pago REST client.
type MercadoPagoGateway struct {
	api             mercadoPagoAPI
	notificationURL string
}

func NewMercadoPagoGateway(api mercadoPagoAPI, notificationURL string) *MercadoPagoGateway {
	return &MercadoPagoGateway{api: api, notificationURL: strings.TrimSpace(notificationURL)}
}

func (g *MercadoPagoGateway) Name() enums.PaymentGateway {
	return enums.PaymentGatewayMercadoPago
}

func (g *MercadoPagoGateway) Charge(ctx context.Context, charge Charge) (*GatewayPayment, error) {
	req := mercadopago.CreatePaymentRequest{
		TransactionAmount: charge.Amount,
		Description:       charge.Description,
		PaymentMethodID:   mercadoPagoMethodID(charge),
		ExternalReference: charge.ExternalReference,
		NotificationURL:   g.notificationURL,
		Token:             charge.CardToken,
		Installments:      charge.Installments,
		IssuerID:          charge.IssuerID,
		Payer: mercadopago.Payer{
			Email:     charge.Payer.Email,
			FirstName: charge.Payer.FirstName,
			LastName:  charge.Payer.LastName,
		},
	}
	if charge.Method.RequiresCardToken() && req.Installments == 0 {
		req.Installments = 1
	}
	if cpf := digitsOnly(charge.Payer.CPF); cpf != "" {
		req.Payer.Identification = &mercadopago.Identification{Type: "CPF", Number: cpf}
	}
	if a := charge.Payer.Address; a != nil {
		req.Payer.Address = &mercadopago.PayerAddress{
			ZipCode:      digitsOnly(a.PostalCode),
			StreetName:   a.Street,
			StreetNumber: a.Number,
			Neighborhood: a.Neighborhood,
			City:         a.City,
			FederalUnit:  a.State,
		}
	}

	payment, err := g.api.CreatePayment(ctx, req, charge.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return fromMercadoPago(payment), nil
}

func (g *MercadoPagoGateway) Fetch(ctx context.Context, gatewayPaymentID string) (*GatewayPayment, error) {
	payment, err := g.api.GetPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return fromMercadoPago(payment), nil
}

// ListMethods returns the methods enabled on the Mercado Pago account.
func (g *MercadoPagoGateway) ListMethods(ctx context.Context) ([]mercadopago.PaymentMethod, error) {
	return g.api.ListPaymentMethods(ctx)
}

// Cards travel as their brand id (visa, master, elo...).
func mercadoPagoMethodID(charge Charge) string {
	switch charge.Method {
	case enums.PaymentMethodTypePix:
		return "pix"
	case enums.PaymentMethodTypeBoleto:
		return "bolbradesco"
	default:
		return charge.CardBrand
	}
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fromMercadoPago(p *mercadopago.Payment) *GatewayPayment {
	out := &GatewayPayment{
		ID:                p.IDString(),
		Status:            enums.PaymentStatus(p.Status),
		StatusDetail:      p.StatusDetail,
		Method:            p.PaymentMethodID,
		ExternalReference: p.ExternalReference,
		QRCode:            p.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:      p.PointOfInteraction.TransactionData.QRCodeBase64,
		BoletoURL:         p.TransactionDetails.ExternalResourceURL,
		RedirectURL:       p.PointOfInteraction.TransactionData.TicketURL,
		ApprovedAt:        p.DateApproved,
	}
	return out
}
