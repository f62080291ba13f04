package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SettlementKind string

const (
	SettlementDeposit    SettlementKind = "deposit"
	SettlementWithdrawal SettlementKind = "withdrawal"
)

type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "pending"
	SettlementApproved SettlementStatus = "approved"
	SettlementRejected SettlementStatus = "rejected"
)

// SettlementRequest is a deposit or withdrawal waiting for an admin decision.
// Deposits carry Screenshot (proof of payment); withdrawals carry Phone, Fee
// and TotalDeduction. Amount is the principal in both cases.
type SettlementRequest struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           SettlementKind   `gorm:"type:varchar(16);not null;index" json:"kind"`
	AccountID      string           `gorm:"type:uuid;not null;index" json:"account_id"`
	Status         SettlementStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	FullNames      string           `gorm:"not null" json:"full_names"`
	Phone          string           `json:"phone,omitempty"`
	Screenshot     string           `json:"screenshot,omitempty"`
	Amount         decimal.Decimal  `gorm:"type:numeric;not null" json:"amount"`
	Fee            decimal.Decimal  `gorm:"type:numeric;not null;default:0" json:"fee"`
	TotalDeduction decimal.Decimal  `gorm:"type:numeric;not null;default:0" json:"total_deduction"`
	DecidedBy      *string          `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt      *time.Time       `json:"decided_at,omitempty"`
	DecisionNote   string           `json:"decision_note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (s *SettlementRequest) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
