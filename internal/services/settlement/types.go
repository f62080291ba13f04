package settlement

import (
	"context"
	"time"

	"amafaranga/internal/models"

	"github.com/shopspring/decimal"
)

// Event routing keys
const (
	EventRequested = "settlement.requested"
	EventDecided   = "settlement.decided"
)

// DefaultMaxAttempts bounds approval commits retried after a version conflict.
const DefaultMaxAttempts = 3

// DefaultBackoff is the first delay between approval retries; it doubles on
// every retry.
const DefaultBackoff = 50 * time.Millisecond

type WithdrawalInput struct {
	AccountID string
	Amount    decimal.Decimal
	Phone     string
	FullNames string
}

type DepositInput struct {
	AccountID      string
	Amount         decimal.Decimal
	FullNames      string
	ProofReference string
}

// Decision is an admin verdict on a pending request.
type Decision struct {
	Approve bool
	AdminID string
	Note    string
}

type Event struct {
	RequestID string                  `json:"request_id"`
	Kind      models.SettlementKind   `json:"kind"`
	AccountID string                  `json:"account_id"`
	Status    models.SettlementStatus `json:"status"`
	Amount    decimal.Decimal         `json:"amount"`
	Fee       decimal.Decimal         `json:"fee"`
	At        time.Time               `json:"at"`
}

// EventPublisher delivers domain events. Failures are logged only.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}
