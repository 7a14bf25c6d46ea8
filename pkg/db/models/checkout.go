package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checkout is a saved draft basket owned by a user.
type Checkout struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"usuario_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items []CheckoutItem `gorm:"foreignKey:CheckoutID" json:"itens"`
}

func (c *Checkout) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type CheckoutItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CheckoutID uuid.UUID `gorm:"column:checkout_id;type:uuid;not null;index" json:"checkout_id"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"produto_id"`
	Quantity   int       `gorm:"column:quantity;not null;check:quantity > 0" json:"qtd"`
}

func (i *CheckoutItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
