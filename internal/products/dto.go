package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest creates a product, its extra images and optionally its
// stock row in one transaction. SellerID defaults to the caller.
type CreateProductRequest struct {
	SellerID      *uuid.UUID      `json:"usuario_id,omitempty"`
	Name          string          `json:"nome" validate:"required,max=200"`
	Description   string          `json:"descricao" validate:"max=4000"`
	Price         decimal.Decimal `json:"valor"`
	Discount      decimal.Decimal `json:"desconto"`
	CategoryID    *uuid.UUID      `json:"categoria_id,omitempty"`
	IsActive      *bool           `json:"ativo,omitempty"`
	ImageURL      *string         `json:"img,omitempty" validate:"omitempty,url"`
	Images        []string        `json:"imagens,omitempty" validate:"omitempty,max=20,dive,url"`
	StockQuantity *int            `json:"qtd_estoque,omitempty" validate:"omitempty,gte=0"`
}

// PatchProductRequest updates only the supplied fields.
type PatchProductRequest struct {
	Name        *string          `json:"nome,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"descricao,omitempty" validate:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"valor,omitempty"`
	Discount    *decimal.Decimal `json:"desconto,omitempty"`
	CategoryID  *uuid.UUID       `json:"categoria_id,omitempty"`
	IsActive    *bool            `json:"ativo,omitempty"`
	ImageURL    *string          `json:"img,omitempty" validate:"omitempty,url"`
}

// AddImageRequest attaches an extra image URL to a product.
type AddImageRequest struct {
	ProductID uuid.UUID `json:"produto_id" validate:"required"`
	URL       string    `json:"imagem" validate:"required,url"`
}

// ListFilter narrows GET /produto.
type ListFilter struct {
	ID           *uuid.UUID
	SellerID     *uuid.UUID
	IsActive     *bool
	SellerName   string
	CategoryName string
	Name         string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
}
