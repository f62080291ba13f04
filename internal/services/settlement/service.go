// Package settlement records deposit and withdrawal requests and applies
// the admin decision on them.
package settlement

import (
	"context"
	"errors"
	"time"

	apperrors "amafaranga/internal/errors"
	"amafaranga/internal/models"
	"amafaranga/internal/repositories"
	"amafaranga/internal/services/fees"
	"amafaranga/internal/utils"
	"amafaranga/internal/utils/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Service struct {
	store       repositories.Store
	policy      fees.Policy
	events      EventPublisher
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

// NewService builds the settlement service. events may be nil.
func NewService(store repositories.Store, policy fees.Policy, events EventPublisher, log zerolog.Logger) *Service {
	return &Service{
		store:       store,
		policy:      policy,
		events:      events,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		log:         log.With().Str("component", "settlement").Logger(),
	}
}

// WithRetry sets how often and how patiently an approval is retried after
// a version conflict.
func (s *Service) WithRetry(maxAttempts int, backoff time.Duration) *Service {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if backoff >= 0 {
		s.backoff = backoff
	}
	return s
}

// RequestWithdrawal files a pending withdrawal. The balance must cover the
// amount plus fee now, but nothing is debited until approval.
func (s *Service) RequestWithdrawal(ctx context.Context, in WithdrawalInput) (*models.SettlementRequest, error) {
	if err := fees.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Required(in.FullNames, "full_names")
	v.Check(validation.IsPhone(in.Phone), "phone", "must be a phone number")
	if err := v.Err(); err != nil {
		return nil, err
	}

	account, err := s.account(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	quote := s.policy.Withdrawal(in.Amount)
	if quote.Total.GreaterThan(account.Balance) {
		return nil, &apperrors.InsufficientFundsError{
			Fee:     quote.Fee,
			Total:   quote.Total,
			Balance: account.Balance,
		}
	}

	req := &models.SettlementRequest{
		Kind:           models.SettlementWithdrawal,
		AccountID:      account.ID,
		Status:         models.SettlementPending,
		FullNames:      in.FullNames,
		Phone:          in.Phone,
		Amount:         quote.Amount,
		Fee:            quote.Fee,
		TotalDeduction: quote.Total,
	}
	if err := s.store.CreateSettlementRequest(ctx, req); err != nil {
		return nil, &apperrors.CommitError{Op: "request withdrawal", Cause: err}
	}

	s.publish(ctx, EventRequested, req)
	return req, nil
}

// RequestDeposit files a pending deposit backed by a proof of payment.
func (s *Service) RequestDeposit(ctx context.Context, in DepositInput) (*models.SettlementRequest, error) {
	if err := fees.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	v := validation.New()
	v.Required(in.FullNames, "full_names")
	v.Required(in.ProofReference, "screenshot")
	if err := v.Err(); err != nil {
		return nil, err
	}

	account, err := s.account(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	quote := s.policy.Deposit(in.Amount)
	req := &models.SettlementRequest{
		Kind:           models.SettlementDeposit,
		AccountID:      account.ID,
		Status:         models.SettlementPending,
		FullNames:      in.FullNames,
		Screenshot:     in.ProofReference,
		Amount:         quote.Amount,
		Fee:            quote.Fee,
		TotalDeduction: decimal.Zero,
	}
	if err := s.store.CreateSettlementRequest(ctx, req); err != nil {
		return nil, &apperrors.CommitError{Op: "request deposit", Cause: err}
	}

	s.publish(ctx, EventRequested, req)
	return req, nil
}

// Settle applies an admin decision. The status change and any balance
// effect commit together.
func (s *Service) Settle(ctx context.Context, requestID string, d Decision) (*models.SettlementRequest, error) {
	for attempt := 1; ; attempt++ {
		err := s.settleOnce(ctx, requestID, d)
		if err == nil {
			break
		}
		if errors.Is(err, repositories.ErrVersionConflict) && attempt < s.maxAttempts {
			delay := utils.Backoff(s.backoff, attempt)
			s.log.Debug().Str("request_id", requestID).Int("attempt", attempt).Dur("backoff", delay).Msg("version conflict, retrying settlement")
			if err := utils.SleepContext(ctx, delay); err != nil {
				return nil, &apperrors.CommitError{Op: "settle", Cause: err}
			}
			continue
		}
		switch {
		case errors.Is(err, repositories.ErrVersionConflict):
			return nil, &apperrors.CommitError{Op: "settle", Cause: apperrors.ErrConcurrentUpdate}
		case errors.Is(err, repositories.ErrStaleStatus):
			return nil, apperrors.ErrAlreadySettled
		default:
			return nil, classify("settle", err)
		}
	}

	req, err := s.store.GetSettlementRequest(ctx, requestID)
	if err != nil {
		return nil, classify("settle", err)
	}
	s.log.Info().
		Str("request_id", req.ID).
		Str("kind", string(req.Kind)).
		Str("status", string(req.Status)).
		Str("admin_id", d.AdminID).
		Msg("settlement decided")
	s.publish(ctx, EventDecided, req)
	return req, nil
}

func (s *Service) settleOnce(ctx context.Context, requestID string, d Decision) error {
	req, err := s.store.GetSettlementRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrSettlementNotFound
		}
		return err
	}
	if req.Status != models.SettlementPending {
		return apperrors.ErrAlreadySettled
	}

	decision := repositories.SettlementDecision{
		RequestID: req.ID,
		From:      models.SettlementPending,
		To:        models.SettlementRejected,
		DecidedBy: d.AdminID,
		Note:      d.Note,
	}
	if !d.Approve {
		return s.store.RunBatch(ctx, func(b repositories.Batch) error {
			return b.DecideSettlement(decision)
		})
	}
	decision.To = models.SettlementApproved

	if req.Kind == models.SettlementDeposit {
		return s.store.RunBatch(ctx, func(b repositories.Batch) error {
			if err := increment(b, req.AccountID, req.Amount, nil); err != nil {
				return err
			}
			return b.DecideSettlement(decision)
		})
	}

	account, err := s.account(ctx, req.AccountID)
	if err != nil {
		return err
	}
	if req.TotalDeduction.GreaterThan(account.Balance) {
		return &apperrors.InsufficientFundsError{
			Fee:     req.Fee,
			Total:   req.TotalDeduction,
			Balance: account.Balance,
		}
	}

	version := account.Version
	return s.store.RunBatch(ctx, func(b repositories.Batch) error {
		if err := increment(b, account.ID, req.TotalDeduction.Neg(), &version); err != nil {
			return err
		}
		if err := b.AppendFee(&models.FeeRecord{
			Type:           models.FeeTypeWithdrawal,
			UserID:         &account.ID,
			RequestID:      &req.ID,
			Amount:         req.Fee,
			OriginalAmount: req.Amount,
		}); err != nil {
			return err
		}
		return b.DecideSettlement(decision)
	})
}

// ListPending returns undecided requests, newest first. An empty kind lists
// both kinds.
func (s *Service) ListPending(ctx context.Context, kind models.SettlementKind) ([]models.SettlementRequest, error) {
	reqs, err := s.store.ListSettlementRequests(ctx, repositories.SettlementFilter{
		Kind:   kind,
		Status: models.SettlementPending,
	})
	if err != nil {
		return nil, classify("list settlements", err)
	}
	return reqs, nil
}

func (s *Service) ListForAccount(ctx context.Context, accountID string) ([]models.SettlementRequest, error) {
	reqs, err := s.store.ListSettlementRequests(ctx, repositories.SettlementFilter{AccountID: accountID})
	if err != nil {
		return nil, classify("list settlements", err)
	}
	return reqs, nil
}

func increment(b repositories.Batch, accountID string, delta decimal.Decimal, expectedVersion *int64) error {
	err := b.Increment(accountID, delta, expectedVersion)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrAccountNotFound
	}
	return err
}

func (s *Service) account(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, &apperrors.CommitError{Op: "read account", Cause: err}
	}
	return account, nil
}

func (s *Service) publish(ctx context.Context, key string, req *models.SettlementRequest) {
	if s.events == nil {
		return
	}
	event := Event{
		RequestID: req.ID,
		Kind:      req.Kind,
		AccountID: req.AccountID,
		Status:    req.Status,
		Amount:    req.Amount,
		Fee:       req.Fee,
		At:        req.UpdatedAt,
	}
	if err := s.events.Publish(ctx, key, event); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Str("event", key).Msg("settlement event not published")
	}
}

func classify(op string, err error) error {
	var domain *apperrors.DomainError
	var funds *apperrors.InsufficientFundsError
	var commit *apperrors.CommitError
	if errors.As(err, &funds) || errors.As(err, &commit) || errors.As(err, &domain) {
		return err
	}
	return &apperrors.CommitError{Op: op, Cause: err}
}
