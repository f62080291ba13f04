package transfer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event routing keys
const (
	EventTransferCompleted = "transfer.completed"
)

// Request is a P2P transfer instruction. IdempotencyKey is optional; without
// it a retried request moves money twice.
type Request struct {
	SenderID            string
	RecipientCardNumber string
	Amount              decimal.Decimal
	IdempotencyKey      string
}

// Receipt describes a committed transfer.
type Receipt struct {
	ID            string          `json:"id"`
	SenderID      string          `json:"sender_id"`
	RecipientID   string          `json:"recipient_id"`
	RecipientCard string          `json:"recipient_card,omitempty"`
	RecipientName string          `json:"recipient_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Replayed      bool            `json:"replayed"`
}

// CompletedEvent is published after a commit.
type CompletedEvent struct {
	TransferID  string          `json:"transfer_id"`
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Options tune the commit loop.
type Options struct {
	// MaxAttempts bounds commits retried after a version conflict.
	MaxAttempts int
	// Backoff is the first retry delay; it doubles on every retry.
	Backoff time.Duration
	// Guard makes the sender debit conditional on the version read at the
	// balance check. With Guard off, concurrent transfers can overdraw.
	Guard bool
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		Backoff:     50 * time.Millisecond,
		Guard:       true,
	}
}
