package repositories

import (
	"context"
	"errors"

	"amafaranga/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("balance changed since it was read")
	ErrDuplicateKey    = errors.New("duplicate idempotency key")
	ErrStaleStatus     = errors.New("settlement request is no longer in the expected status")
)

// BalanceUpdate is pushed to subscribers after every committed change.
type BalanceUpdate struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
}

// SettlementFilter narrows ListSettlementRequests. Zero fields match all.
type SettlementFilter struct {
	AccountID string
	Kind      models.SettlementKind
	Status    models.SettlementStatus
	Limit     int
}

// SettlementDecision is the status change applied inside a batch.
type SettlementDecision struct {
	RequestID string
	From      models.SettlementStatus
	To        models.SettlementStatus
	DecidedBy string
	Note      string
}

// Store is the storage collaborator. Balances can only be changed through
// RunBatch.
type Store interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error)
	Subscribe(ctx context.Context, accountID string) (<-chan BalanceUpdate, error)

	// RunBatch commits every write made through the Batch together, or none
	// of them when fn returns an error.
	RunBatch(ctx context.Context, fn func(Batch) error) error

	CreateSettlementRequest(ctx context.Context, req *models.SettlementRequest) error
	GetSettlementRequest(ctx context.Context, id string) (*models.SettlementRequest, error)
	ListSettlementRequests(ctx context.Context, filter SettlementFilter) ([]models.SettlementRequest, error)
	FindFeeByIdempotencyKey(ctx context.Context, key string) (*models.FeeRecord, error)
}

// Batch is the write side of RunBatch.
type Batch interface {
	// Increment adds delta to the balance. With a non-nil expectedVersion the
	// write only applies while the stored version still matches, otherwise
	// ErrVersionConflict is returned.
	Increment(accountID string, delta decimal.Decimal, expectedVersion *int64) error
	// AppendFee stamps ID and CreatedAt and inserts the record.
	AppendFee(rec *models.FeeRecord) error
	// DecideSettlement moves a request from d.From to d.To, or returns
	// ErrStaleStatus.
	DecideSettlement(d SettlementDecision) error
}

// BalanceFeed fans committed balance changes out to subscribers.
type BalanceFeed interface {
	Publish(ctx context.Context, update BalanceUpdate) error
	Subscribe(ctx context.Context, accountID string) (<-chan BalanceUpdate, error)
}
