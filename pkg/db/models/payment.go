package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Payment tracks money collection for one Order. Status mirrors the gateway.
type Payment struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"ordem_id"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index" json:"usuario_id"`
	Gateway          enums.PaymentGateway    `gorm:"column:gateway;type:text;not null" json:"gateway"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id;index" json:"gateway_payment_id,omitempty"`
	Status           enums.PaymentStatus     `gorm:"column:status;type:text;not null;index" json:"status"`
	StatusDetail     *string                 `gorm:"column:status_detail" json:"status_detail,omitempty"`
	Method           enums.PaymentMethodType `gorm:"column:method;type:text;not null" json:"metodo"`
	PaymentMethodID  *uuid.UUID              `gorm:"column:payment_method_id;type:uuid" json:"forma_pagamento_id,omitempty"`
	Amount           decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null" json:"valor"`
	IsActive         bool                    `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime" json:"data_criacao"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	PaidAt           *time.Time              `gorm:"column:paid_at" json:"data_pagamento,omitempty"`

	Products []PaymentProduct `gorm:"foreignKey:PaymentID" json:"produtos"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PaymentProduct duplicates the order lines for gateway line-item display.
type PaymentProduct struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index" json:"pagamento_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"produto_id"`
	Quantity  int       `gorm:"column:quantity;not null" json:"qtd"`
}

func (p *PaymentProduct) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
