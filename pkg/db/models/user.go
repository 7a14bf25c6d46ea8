package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a storefront account. Sellers and buyers share the same table.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"nome"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Phone        *string    `gorm:"column:phone" json:"telefone,omitempty"`
	CPF          *string    `gorm:"column:cpf;uniqueIndex" json:"cpf,omitempty"`
	Age          *int       `gorm:"column:age" json:"idade,omitempty"`
	IsAdmin      bool       `gorm:"column:is_admin;not null" json:"admin"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"ativo"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
