package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a delivery address enriched from the postal code lookup.
type Address struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"usuario_id"`
	PostalCode   string    `gorm:"column:postal_code;not null" json:"cep"`
	Street       string    `gorm:"column:street;not null" json:"rua"`
	Number       string    `gorm:"column:number;not null" json:"numero"`
	Complement   *string   `gorm:"column:complement" json:"complemento,omitempty"`
	Neighborhood string    `gorm:"column:neighborhood" json:"bairro"`
	City         string    `gorm:"column:city;not null" json:"cidade"`
	State        string    `gorm:"column:state;not null" json:"estado"`
	Country      string    `gorm:"column:country;not null" json:"pais"`
	IsActive     bool      `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// PrimaryAddress marks the default delivery address of a user.
type PrimaryAddress struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"usuario_id"`
	AddressID uuid.UUID `gorm:"column:address_id;type:uuid;not null" json:"endereco_id"`
	Address   *Address  `gorm:"foreignKey:AddressID" json:"endereco,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *PrimaryAddress) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
