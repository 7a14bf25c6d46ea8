package address

import (
	"github.com/google/uuid"
)

// DefaultCountry is stored on every address; the postal lookup only covers Brazil.
const DefaultCountry = "Brasil"

// CreateAddressRequest creates an address from a postal code and house number.
// UserID defaults to the caller.
type CreateAddressRequest struct {
	UserID     *uuid.UUID `json:"usuario_id,omitempty"`
	CEP        string     `json:"cep" validate:"required"`
	Number     string     `json:"numero" validate:"required,max=20"`
	Complement *string    `json:"complemento,omitempty" validate:"omitempty,max=120"`
}

// PatchAddressRequest updates the supplied fields. A new cep triggers a lookup.
type PatchAddressRequest struct {
	CEP        *string `json:"cep,omitempty"`
	Number     *string `json:"numero,omitempty" validate:"omitempty,max=20"`
	Complement *string `json:"complemento,omitempty" validate:"omitempty,max=120"`
	IsActive   *bool   `json:"ativo,omitempty"`
}

// ListFilter narrows GET /endereco.
type ListFilter struct {
	ID     *uuid.UUID
	UserID *uuid.UUID
	CEP    string
	City   string
	State  string
}

// CreatePrimaryRequest marks an address as the user's primary address.
type CreatePrimaryRequest struct {
	UserID    uuid.UUID `json:"usuario_id" validate:"required"`
	AddressID uuid.UUID `json:"endereco_id" validate:"required"`
}

// PatchPrimaryRequest repoints a primary address record.
type PatchPrimaryRequest struct {
	AddressID *uuid.UUID `json:"endereco_id,omitempty"`
}
