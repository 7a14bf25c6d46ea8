package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod is a catalog entry shown at checkout (e.g. "Pix", "Boleto").
type PaymentMethod struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"nome"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *PaymentMethod) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
