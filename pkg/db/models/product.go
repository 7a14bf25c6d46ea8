package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a seller listing. Available quantity lives in Stock.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:idx_products_seller_name" json:"usuario_id"`
	Name        string          `gorm:"column:name;not null;uniqueIndex:idx_products_seller_name" json:"nome"`
	Description string          `gorm:"column:description" json:"descricao"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"valor"`
	Discount    decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null" json:"desconto"`
	ImageURL    *string         `gorm:"column:image_url" json:"img,omitempty"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid;index" json:"categoria_id,omitempty"`
	IsActive    bool            `gorm:"column:is_active;not null" json:"ativo"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Seller   *User          `gorm:"foreignKey:SellerID" json:"usuario,omitempty"`
	Category *Category      `gorm:"foreignKey:CategoryID" json:"categoria,omitempty"`
	Stock    *Stock         `gorm:"foreignKey:ProductID" json:"estoque,omitempty"`
	Images   []ProductImage `gorm:"foreignKey:ProductID" json:"imagens,omitempty"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductImage is an additional image URL attached to a product.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"produto_id"`
	URL       string    `gorm:"column:url;not null" json:"imagem"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
