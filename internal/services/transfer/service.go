// Package transfer moves funds between accounts and records the platform fee
// for each move.
package transfer

import (
	"context"
	"errors"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"
	"amafaranga/internal/services/fees"
	"amafaranga/internal/utils"

	"github.com/rs/zerolog"
)

type Service struct {
	store    repositories.Store
	resolver RecipientResolver
	policy   fees.Policy
	events   EventPublisher
	opts     Options
	log      zerolog.Logger
}

// NewService builds the engine. events may be nil.
func NewService(store repositories.Store, resolver RecipientResolver, policy fees.Policy, events EventPublisher, opts Options, log zerolog.Logger) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Service{
		store:    store,
		resolver: resolver,
		policy:   policy,
		events:   events,
		opts:     opts,
		log:      log.With().Str("component", "transfer").Logger(),
	}
}

// Transfer validates the request, prices it and commits sender debit,
// recipient credit and fee record as one batch.
func (s *Service) Transfer(ctx context.Context, req Request) (*Receipt, error) {
	if err := fees.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	key := s.scopedKey(req)
	if key != nil {
		receipt, err := s.replay(ctx, req, *key)
		if err == nil || !errors.Is(err, repositories.ErrNotFound) {
			return receipt, err
		}
	}

	recipient, err := s.resolver.Resolve(ctx, req.RecipientCardNumber)
	if err != nil {
		return nil, classify("resolve recipient", err)
	}

	quote := s.policy.Transfer(req.Amount)

	for attempt := 1; ; attempt++ {
		receipt, err := s.commit(ctx, req, recipient, quote, key)
		if err == nil {
			s.completed(ctx, receipt)
			return receipt, nil
		}

		switch {
		case errors.Is(err, repositories.ErrVersionConflict):
			if attempt >= s.opts.MaxAttempts {
				s.log.Warn().Str("sender_id", req.SenderID).Int("attempts", attempt).Msg("transfer gave up after version conflicts")
				return nil, &apperrors.CommitError{Op: "transfer", Cause: apperrors.ErrConcurrentUpdate}
			}
			delay := utils.Backoff(s.opts.Backoff, attempt)
			s.log.Debug().Str("sender_id", req.SenderID).Int("attempt", attempt).Dur("backoff", delay).Msg("version conflict, retrying transfer")
			if err := utils.SleepContext(ctx, delay); err != nil {
				return nil, &apperrors.CommitError{Op: "transfer", Cause: err}
			}
			// The conflicting write may be our own key committed by a
			// concurrent request; its receipt wins over a fresh balance check.
			if key != nil {
				receipt, err := s.replay(ctx, req, *key)
				if err == nil || !errors.Is(err, repositories.ErrNotFound) {
					return receipt, err
				}
			}
		case errors.Is(err, repositories.ErrDuplicateKey) && key != nil:
			// A concurrent request with the same key committed first.
			receipt, err := s.replay(ctx, req, *key)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, classify("transfer", err)
			}
			return receipt, err
		default:
			return nil, classify("transfer", err)
		}
	}
}

// commit runs one check-and-write attempt against the latest balance.
func (s *Service) commit(ctx context.Context, req Request, recipient *models.Account, quote fees.Quote, key *string) (*Receipt, error) {
	sender, err := s.store.GetAccount(ctx, req.SenderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, err
	}

	if quote.Total.GreaterThan(sender.Balance) {
		return nil, &apperrors.InsufficientFundsError{
			Fee:     quote.Fee,
			Total:   quote.Total,
			Balance: sender.Balance,
		}
	}

	var expected *int64
	if s.opts.Guard {
		v := sender.Version
		expected = &v
	}

	rec := &models.FeeRecord{
		Type:           models.FeeTypeTransfer,
		SenderID:       &sender.ID,
		RecipientID:    &recipient.ID,
		Amount:         quote.Fee,
		OriginalAmount: quote.Amount,
		IdempotencyKey: key,
	}

	err = s.store.RunBatch(ctx, func(b repositories.Batch) error {
		if err := b.Increment(sender.ID, quote.Total.Neg(), expected); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return err
		}
		if err := b.Increment(recipient.ID, quote.Amount, nil); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrRecipientNotFound
			}
			return err
		}
		return b.AppendFee(rec)
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		ID:            rec.ID,
		SenderID:      sender.ID,
		RecipientID:   recipient.ID,
		RecipientCard: recipient.CardNumber,
		RecipientName: recipient.FullNames,
		Amount:        quote.Amount,
		Fee:           quote.Fee,
		Total:         quote.Total,
		CreatedAt:     rec.CreatedAt,
	}, nil
}

// replay rebuilds the receipt of an already committed transfer. It returns
// repositories.ErrNotFound when the key has not been used.
func (s *Service) replay(ctx context.Context, req Request, key string) (*Receipt, error) {
	rec, err := s.store.FindFeeByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, classify("replay transfer", err)
	}
	if rec.Type != models.FeeTypeTransfer || !rec.OriginalAmount.Equal(req.Amount) {
		return nil, apperrors.ErrIdempotencyKeyReused
	}

	receipt := &Receipt{
		ID:        rec.ID,
		SenderID:  deref(rec.SenderID),
		Amount:    rec.OriginalAmount,
		Fee:       rec.Amount,
		Total:     rec.OriginalAmount.Add(rec.Amount),
		CreatedAt: rec.CreatedAt,
		Replayed:  true,
	}
	if rec.RecipientID != nil {
		receipt.RecipientID = *rec.RecipientID
		if recipient, err := s.store.GetAccount(ctx, *rec.RecipientID); err == nil {
			receipt.RecipientCard = recipient.CardNumber
			receipt.RecipientName = recipient.FullNames
		}
	}
	if receipt.RecipientCard != "" && receipt.RecipientCard != req.RecipientCardNumber {
		return nil, apperrors.ErrIdempotencyKeyReused
	}

	s.log.Info().Str("transfer_id", rec.ID).Str("sender_id", req.SenderID).Msg("transfer replayed")
	return receipt, nil
}

func (s *Service) completed(ctx context.Context, receipt *Receipt) {
	s.log.Info().
		Str("transfer_id", receipt.ID).
		Str("sender_id", receipt.SenderID).
		Str("recipient_id", receipt.RecipientID).
		Str("amount", receipt.Amount.String()).
		Str("fee", receipt.Fee.String()).
		Msg("transfer committed")

	if s.events == nil {
		return
	}
	event := CompletedEvent{
		TransferID:  receipt.ID,
		SenderID:    receipt.SenderID,
		RecipientID: receipt.RecipientID,
		Amount:      receipt.Amount,
		Fee:         receipt.Fee,
		OccurredAt:  receipt.CreatedAt,
	}
	if err := s.events.Publish(ctx, EventTransferCompleted, event); err != nil {
		s.log.Warn().Err(err).Str("transfer_id", receipt.ID).Msg("transfer event not published")
	}
}

// scopedKey namespaces the client key by sender so two accounts can use the
// same key independently.
func (s *Service) scopedKey(req Request) *string {
	if req.IdempotencyKey == "" {
		return nil
	}
	key := req.SenderID + ":" + req.IdempotencyKey
	return &key
}

// classify passes domain errors through and wraps everything else as a
// commit failure.
func classify(op string, err error) error {
	var domain *apperrors.DomainError
	var funds *apperrors.InsufficientFundsError
	var commit *apperrors.CommitError
	if errors.As(err, &funds) || errors.As(err, &commit) || errors.As(err, &domain) {
		return err
	}
	return &apperrors.CommitError{Op: op, Cause: err}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
