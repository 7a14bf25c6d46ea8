package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Reconcile sources.
const (
	SourceCheckout = "checkout"
	SourceWebhook  = "webhook"
	SourceSync     = "sync"
)

type CreatePaymentRequest struct {
	UserID          *uuid.UUID              `json:"usuario_id,omitempty"`
	Products        []orders.LineRequest    `json:"produtos" validate:"required,min=1,dive"`
	ShippingFee     *decimal.Decimal        `json:"frete,omitempty"`
	Method          enums.PaymentMethodType `json:"metodo" validate:"required"`
	PaymentMethodID *uuid.UUID              `json:"forma_pagamento_id,omitempty"`
	CardToken       string                  `json:"token_cartao,omitempty"`
	CardBrand       string                  `json:"bandeira,omitempty"`
	Installments    int                     `json:"parcelas,omitempty" validate:"omitempty,gte=1,lte=24"`
	IssuerID        string                  `json:"emissor_id,omitempty"`
	PayerEmail      string                  `json:"email_pagador,omitempty" validate:"omitempty,email"`
	PayerCPF        string                  `json:"cpf_pagador,omitempty"`
}

type CreatePaymentResult struct {
	Order   *models.Order   `json:"ordem"`
	Payment *models.Payment `json:"pagamento"`
	Gateway *GatewayPayment `json:"gateway"`
}

// ReconcileResult reports what a reconciliation did to the local payment.
type ReconcileResult struct {
	Outcome   string              `json:"resultado"`
	PaymentID *uuid.UUID          `json:"pagamento_id,omitempty"`
	Status    enums.PaymentStatus `json:"status,omitempty"`
}

// SyncSummary counts the outcomes of one pending-payment sync run.
type SyncSummary struct {
	Checked   int
	Applied   int
	Unchanged int
	Ignored   int
	Failed    int
}
