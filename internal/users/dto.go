package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"nome"`
	Email       string     `json:"email"`
	Phone       *string    `json:"telefone,omitempty"`
	CPF         *string    `json:"cpf,omitempty"`
	Age         *int       `json:"idade,omitempty"`
	IsAdmin     bool       `json:"admin"`
	IsActive    bool       `json:"ativo"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserRequest is the public signup payload.
type CreateUserRequest struct {
	Name     string  `json:"nome" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"senha" validate:"required,min=8"`
	Phone    *string `json:"telefone,omitempty" validate:"omitempty,max=30"`
	CPF      *string `json:"cpf,omitempty" validate:"omitempty,max=14"`
	Age      *int    `json:"idade,omitempty" validate:"omitempty,gte=0,lte=150"`
}

// PatchUserRequest applies only the supplied fields. Admin may only be
// changed by an admin.
type PatchUserRequest struct {
	Name     *string `json:"nome,omitempty" validate:"omitempty,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"senha,omitempty" validate:"omitempty,min=8"`
	Phone    *string `json:"telefone,omitempty" validate:"omitempty,max=30"`
	CPF      *string `json:"cpf,omitempty" validate:"omitempty,max=14"`
	Age      *int    `json:"idade,omitempty" validate:"omitempty,gte=0,lte=150"`
	IsAdmin  *bool   `json:"admin,omitempty"`
	IsActive *bool   `json:"ativo,omitempty"`
}

// ListFilter narrows GET /usuarios. Text fields match as case-insensitive
// substrings.
type ListFilter struct {
	ID       *uuid.UUID
	Name     string
	Email    string
	Phone    string
	CPF      string
	Age      *int
	IsAdmin  *bool
	IsActive *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	roles := []string{"User"}
	if u.IsAdmin {
		roles = []string{"Admin"}
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		CPF:         u.CPF,
		Age:         u.Age,
		IsAdmin:     u.IsAdmin,
		IsActive:    u.IsActive,
		Roles:       roles,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// FromModels converts a page of users.
func FromModels(list []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
