package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CardNumberLength is the fixed length of the public card identifier.
const CardNumberLength = 10

// Account is a user's holding record. Balance is only ever changed through a
// storage batch; Version increments with every change.
type Account struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	CardNumber   string          `gorm:"size:10;uniqueIndex;not null" json:"card_number"`
	FullNames    string          `gorm:"not null" json:"full_names"`
	Phone        string          `gorm:"index" json:"phone"`
	PasswordHash string          `gorm:"not null" json:"-"`
	Role         string          `gorm:"default:'user'" json:"role"`
	Balance      decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"balance"`
	Version      int64           `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = RoleUser
	}
	return nil
}
