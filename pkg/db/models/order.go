package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a priced snapshot of the products a user selected at checkout.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"usuario_id"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null" json:"status"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	ShippingFee decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null" json:"frete"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"data_criacao"`
	FinalizedAt *time.Time        `gorm:"column:finalized_at" json:"data_finalizacao,omitempty"`

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"itens"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderLine captures the unit price at order time; later price changes do
// not affect it.
type OrderLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"ordem_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"produto_id"`
	ProductName string          `gorm:"column:product_name;not null" json:"produto_nome"`
	Quantity    int             `gorm:"column:quantity;not null;check:quantity > 0" json:"qtd"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"preco_unitario"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// LineTotal returns quantity times the captured unit price.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
