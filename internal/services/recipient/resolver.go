// Package recipient resolves 10-digit card numbers to accounts.
package recipient

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"
	"amafaranga/internal/utils/validation"

	"github.com/rs/zerolog"
)

// Directory is the account lookup the resolver queries.
type Directory interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error)
}

// CardIndex caches card number to account id. Implementations may be
// unavailable; the resolver then goes straight to the directory.
type CardIndex interface {
	LookupCard(ctx context.Context, cardNumber string) (string, bool, error)
	RememberCard(ctx context.Context, cardNumber, accountID string) error
}

type Resolver struct {
	dir   Directory
	index CardIndex
	log   zerolog.Logger
}

// NewResolver builds a resolver. index may be nil.
func NewResolver(dir Directory, index CardIndex, log zerolog.Logger) *Resolver {
	return &Resolver{
		dir:   dir,
		index: index,
		log:   log.With().Str("component", "recipient_resolver").Logger(),
	}
}

// Resolve returns the account owning cardNumber. A malformed card number is
// rejected without touching storage.
func (r *Resolver) Resolve(ctx context.Context, cardNumber string) (*models.Account, error) {
	if !validation.IsCardNumber(cardNumber) {
		return nil, apperrors.ErrIncompleteCardNumber
	}

	if account := r.fromIndex(ctx, cardNumber); account != nil {
		return account, nil
	}

	account, err := r.dir.FindAccountByCardNumber(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	if r.index != nil {
		if err := r.index.RememberCard(ctx, cardNumber, account.ID); err != nil {
			r.log.Warn().Err(err).Msg("card index write failed")
		}
	}
	return account, nil
}

// fromIndex re-reads the cached account so balances are never stale.
func (r *Resolver) fromIndex(ctx context.Context, cardNumber string) *models.Account {
	if r.index == nil {
		return nil
	}
	id, found, err := r.index.LookupCard(ctx, cardNumber)
	if err != nil {
		r.log.Warn().Err(err).Msg("card index lookup failed")
		return nil
	}
	if !found {
		return nil
	}
	account, err := r.dir.GetAccount(ctx, id)
	if err != nil || account.CardNumber != cardNumber {
		return nil
	}
	return account
}

// GenerateCardNumber returns a random 10-digit card number that does not
// start with zero.
func GenerateCardNumber() (string, error) {
	lo := big.NewInt(1_000_000_000)
	span := big.NewInt(9_000_000_000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, lo).String(), nil
}
