package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index" json:"produto_id"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid" json:"usuario_id,omitempty"`
	Rating    int        `gorm:"column:rating;not null;check:rating BETWEEN 1 AND 5" json:"numero"`
	Comment   *string    `gorm:"column:comment" json:"comentario,omitempty"`
	IsActive  bool       `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
