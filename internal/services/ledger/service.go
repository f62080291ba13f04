// Package ledger is the read side of account balances: authoritative point
// reads and live observation. Balances are written only inside storage
// batches, never through this package.
package ledger

import (
	"context"
	"errors"
	"fmt"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Reader is the slice of the store the ledger needs.
type Reader interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	Subscribe(ctx context.Context, accountID string) (<-chan repositories.BalanceUpdate, error)
}

// Snapshot is a balance together with the version it was read at.
type Snapshot struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
}

type Service struct {
	store Reader
	log   zerolog.Logger
}

func NewService(store Reader, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
	}
}

// Snapshot reads the account straight from storage.
func (s *Service) Snapshot(ctx context.Context, accountID string) (Snapshot, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return Snapshot{}, apperrors.ErrAccountNotFound
		}
		return Snapshot{}, &apperrors.CommitError{Op: "read balance", Cause: err}
	}
	return Snapshot{AccountID: account.ID, Balance: account.Balance, Version: account.Version}, nil
}

func (s *Service) CurrentBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	snap, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Balance, nil
}

// ObserveBalance emits the current balance and then every newer committed
// balance. The channel is closed when ctx is done or the feed stops.
func (s *Service) ObserveBalance(ctx context.Context, accountID string) (<-chan decimal.Decimal, error) {
	subCtx, cancel := context.WithCancel(ctx)

	// Subscribe before the point read so no change between the two is lost.
	updates, err := s.store.Subscribe(subCtx, accountID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to observe balance: %w", err)
	}

	snap, err := s.Snapshot(subCtx, accountID)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan decimal.Decimal, 1)
	out <- snap.Balance

	go func() {
		defer cancel()
		defer close(out)

		last := snap.Version
		for {
			select {
			case <-subCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					s.log.Debug().Str("account_id", accountID).Msg("balance feed closed")
					return
				}
				if update.Version <= last {
					continue
				}
				last = update.Version
				select {
				case out <- update.Balance:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
