package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock is the available quantity of a product. One row per product.
type Stock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex" json:"produto_id"`
	Quantity  int       `gorm:"column:quantity;not null;check:quantity >= 0" json:"qtd_estoque"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Stock) TableName() string { return "stocks" }

func (s *Stock) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
