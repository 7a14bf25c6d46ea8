package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginAudit records each successful login.
type LoginAudit struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"usuario_id"`
	Email     string    `gorm:"column:email;not null" json:"email"`
	IP        *string   `gorm:"column:ip" json:"ip,omitempty"`
	UserAgent *string   `gorm:"column:user_agent" json:"user_agent,omitempty"`
	LoggedAt  time.Time `gorm:"column:logged_at;not null" json:"logged_at"`
}

func (LoginAudit) TableName() string { return "login_audits" }

func (a *LoginAudit) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
