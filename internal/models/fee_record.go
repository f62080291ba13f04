package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FeeType string

const (
	FeeTypeTransfer   FeeType = "transfer_fee"
	FeeTypeWithdrawal FeeType = "withdrawal_fee"
	FeeTypeDeposit    FeeType = "deposit_fee"
	FeeTypeGamePayout FeeType = "game_payout"
)

// FeeRecord is an append-only entry recognising platform revenue.
// CreatedAt is stamped by the store, never by the caller.
type FeeRecord struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	Type           FeeType         `gorm:"type:varchar(32);not null;index" json:"type"`
	SenderID       *string         `gorm:"type:uuid;index" json:"sender_id,omitempty"`
	RecipientID    *string         `gorm:"type:uuid" json:"recipient_id,omitempty"`
	UserID         *string         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	MatchID        *string         `gorm:"index" json:"match_id,omitempty"`
	RequestID      *string         `gorm:"type:uuid" json:"request_id,omitempty"`
	Amount         decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	OriginalAmount decimal.Decimal `gorm:"type:numeric;not null" json:"original_amount"`
	IdempotencyKey *string         `gorm:"uniqueIndex" json:"-"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
}

func (f *FeeRecord) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
