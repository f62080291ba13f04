package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amafaranga/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStore implements Store on top of a gorm database. Committed balance
// changes are published to the feed after the transaction returns.
type GormStore struct {
	db   *gorm.DB
	feed BalanceFeed
	log  zerolog.Logger
	now  func() time.Time
}

func NewGormStore(db *gorm.DB, feed BalanceFeed, log zerolog.Logger) *GormStore {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &GormStore{
		db:   db,
		feed: feed,
		log:  log.With().Str("component", "gorm_store").Logger(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount inserts a new account. Only the seed command and tests create
// accounts.
func (s *GormStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *GormStore) FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("card_number = ?", cardNumber).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *GormStore) Subscribe(ctx context.Context, accountID string) (<-chan BalanceUpdate, error) {
	return s.feed.Subscribe(ctx, accountID)
}

func (s *GormStore) RunBatch(ctx context.Context, fn func(Batch) error) error {
	batch := &gormBatch{now: s.now}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch.tx = tx
		return fn(batch)
	})
	if err != nil {
		return err
	}

	for _, update := range batch.updates() {
		if err := s.feed.Publish(ctx, update); err != nil {
			s.log.Warn().Err(err).Str("account_id", update.AccountID).Msg("balance update not published")
		}
	}
	return nil
}

func (s *GormStore) CreateSettlementRequest(ctx context.Context, req *models.SettlementRequest) error {
	now := s.now()
	req.CreatedAt = now
	req.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create settlement request: %w", translate(err))
	}
	return nil
}

func (s *GormStore) GetSettlementRequest(ctx context.Context, id string) (*models.SettlementRequest, error) {
	var req models.SettlementRequest
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *GormStore) ListSettlementRequests(ctx context.Context, filter SettlementFilter) ([]models.SettlementRequest, error) {
	q := s.db.WithContext(ctx).Model(&models.SettlementRequest{})
	if filter.AccountID != "" {
		q = q.Where("account_id = ?", filter.AccountID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var reqs []models.SettlementRequest
	if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list settlement requests: %w", err)
	}
	return reqs, nil
}

func (s *GormStore) FindFeeByIdempotencyKey(ctx context.Context, key string) (*models.FeeRecord, error) {
	var rec models.FeeRecord
	if err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// SaveGameResult persists a mini-game completion.
func (s *GormStore) SaveGameResult(ctx context.Context, result *models.GameResult) error {
	result.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to save game result: %w", err)
	}
	return nil
}

// ListGameResults returns an account's results for one game, newest first.
func (s *GormStore) ListGameResults(ctx context.Context, accountID string, game models.GameKind, limit int) ([]models.GameResult, error) {
	var results []models.GameResult
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND game = ?", accountID, game).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list game results: %w", err)
	}
	return results, nil
}

type gormBatch struct {
	tx      *gorm.DB
	now     func() time.Time
	touched []string
	latest  map[string]BalanceUpdate
}

func (b *gormBatch) Increment(accountID string, delta decimal.Decimal, expectedVersion *int64) error {
	q := b.tx.Model(&models.Account{}).Where("id = ?", accountID)
	if expectedVersion != nil {
		q = q.Where("version = ?", *expectedVersion)
	}

	res := q.Updates(map[string]interface{}{
		"balance":    gorm.Expr("balance + ?", delta),
		"version":    gorm.Expr("version + 1"),
		"updated_at": b.now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := b.tx.Model(&models.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to adjust balance: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	var account models.Account
	if err := b.tx.Select("id", "balance", "version").Where("id = ?", accountID).First(&account).Error; err != nil {
		return fmt.Errorf("failed to read adjusted balance: %w", err)
	}
	b.record(BalanceUpdate{AccountID: account.ID, Balance: account.Balance, Version: account.Version})
	return nil
}

func (b *gormBatch) AppendFee(rec *models.FeeRecord) error {
	rec.CreatedAt = b.now()
	if err := b.tx.Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to append fee record: %w", err)
	}
	return nil
}

func (b *gormBatch) DecideSettlement(d SettlementDecision) error {
	now := b.now()
	updates := map[string]interface{}{
		"status":        d.To,
		"decided_at":    now,
		"decision_note": d.Note,
		"updated_at":    now,
	}
	if d.DecidedBy != "" {
		updates["decided_by"] = d.DecidedBy
	}

	res := b.tx.Model(&models.SettlementRequest{}).
		Where("id = ? AND status = ?", d.RequestID, d.From).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to decide settlement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (b *gormBatch) record(update BalanceUpdate) {
	if b.latest == nil {
		b.latest = make(map[string]BalanceUpdate)
	}
	if _, seen := b.latest[update.AccountID]; !seen {
		b.touched = append(b.touched, update.AccountID)
	}
	b.latest[update.AccountID] = update
}

func (b *gormBatch) updates() []BalanceUpdate {
	out := make([]BalanceUpdate, 0, len(b.touched))
	for _, id := range b.touched {
		out = append(out, b.latest[id])
	}
	return out
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}
