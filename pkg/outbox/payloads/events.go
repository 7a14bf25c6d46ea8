package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the line shape shared by order events.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent is emitted when checkout persists an order and its payment.
type OrderCreatedEvent struct {
	OrderID   uuid.UUID               `json:"order_id"`
	PaymentID uuid.UUID               `json:"payment_id"`
	UserID    uuid.UUID               `json:"user_id"`
	Total     decimal.Decimal         `json:"total"`
	Method    enums.PaymentMethodType `json:"method"`
	Lines     []OrderLine             `json:"lines"`
}

// PaymentStatusChangedEvent is emitted whenever reconciliation changes a
// payment's mirrored status.
type PaymentStatusChangedEvent struct {
	PaymentID        uuid.UUID            `json:"payment_id"`
	OrderID          uuid.UUID            `json:"order_id"`
	Gateway          enums.PaymentGateway `json:"gateway"`
	GatewayPaymentID string               `json:"gateway_payment_id"`
	PreviousStatus   enums.PaymentStatus  `json:"previous_status"`
	Status           enums.PaymentStatus  `json:"status"`
}

// OrderFinalizedEvent is emitted when an approved payment finalizes its order.
type OrderFinalizedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	FinalizedAt time.Time       `json:"finalized_at"`
}
