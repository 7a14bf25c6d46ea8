package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Charge is what the coordinator asks a gateway to collect.
type Charge struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	Method            enums.PaymentMethodType
	CardToken         string
	CardBrand         string
	Installments      int
	IssuerID          string
	IdempotencyKey    string
	Payer             Payer
}

type Payer struct {
	Email     string
	FirstName string
	LastName  string
	CPF       string
	Address   *PayerAddress
}

// PayerAddress is the billing address boleto issuers print on the slip.
type PayerAddress struct {
	PostalCode   string
	Street       string
	Number       string
	Neighborhood string
	City         string
	State        string
}

// GatewayPayment is the gateway's view of a payment, normalized across
// processors.
type GatewayPayment struct {
	ID                string              `json:"id"`
	Status            enums.PaymentStatus `json:"status"`
	StatusDetail      string              `json:"status_detail,omitempty"`
	Method            string              `json:"metodo,omitempty"`
	ExternalReference string              `json:"external_reference,omitempty"`
	QRCode            string              `json:"qr_code,omitempty"`
	QRCodeBase64      string              `json:"qr_code_base64,omitempty"`
	BoletoURL         string              `json:"boleto_url,omitempty"`
	RedirectURL       string              `json:"redirect_url,omitempty"`
	ApprovedAt        *time.Time          `json:"data_aprovacao,omitempty"`
}

// Gateway is one external payment processor.
type Gateway interface {
	Name() enums.PaymentGateway
	Charge(ctx context.Context, charge Charge) (*GatewayPayment, error)
	Fetch(ctx context.Context, gatewayPaymentID string) (*GatewayPayment, error)
}
