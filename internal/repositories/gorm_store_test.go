package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"amafaranga/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "store.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return NewGormStore(db, nil, zerolog.Nop())
}

func seedAccount(t *testing.T, s *GormStore, card string, balance string) *models.Account {
	t.Helper()
	account := &models.Account{
		CardNumber:   card,
		FullNames:    "Account " + card,
		PasswordHash: "x",
		Balance:      decimal.RequireFromString(balance),
	}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account
}

func TestGormStoreAccountLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "1111111111", "110")

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(110).Equal(got.Balance))

	got, err = s.FindAccountByCardNumber(ctx, "1111111111")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.FindAccountByCardNumber(ctx, "9999999999")
	assert.ErrorIs(t, err, ErrNotFound)

	dup := &models.Account{CardNumber: "1111111111", FullNames: "dup", PasswordHash: "x"}
	assert.ErrorIs(t, s.CreateAccount(ctx, dup), ErrDuplicateKey)
}

func TestGormStoreRunBatchCommitsAndPublishes(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := seedAccount(t, s, "1111111111", "110")
	recipient := seedAccount(t, s, "2222222222", "0")

	updates, err := s.Subscribe(ctx, sender.ID)
	require.NoError(t, err)

	version := sender.Version
	err = s.RunBatch(ctx, func(b Batch) error {
		if err := b.Increment(sender.ID, decimal.NewFromInt(-110), &version); err != nil {
			return err
		}
		if err := b.Increment(recipient.ID, decimal.NewFromInt(100), nil); err != nil {
			return err
		}
		return b.AppendFee(&models.FeeRecord{
			Type:           models.FeeTypeTransfer,
			SenderID:       &sender.ID,
			RecipientID:    &recipient.ID,
			Amount:         decimal.NewFromInt(10),
			OriginalAmount: decimal.NewFromInt(100),
		})
	})
	require.NoError(t, err)

	got, err := s.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
	assert.Equal(t, version+1, got.Version)

	got, err = s.GetAccount(ctx, recipient.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Balance))

	select {
	case u := <-updates:
		assert.True(t, u.Balance.IsZero())
		assert.Equal(t, version+1, u.Version)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}
}

func TestGormStoreRunBatchRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sender := seedAccount(t, s, "1111111111", "110")
	recipient := seedAccount(t, s, "2222222222", "0")

	boom := errors.New("boom")
	err := s.RunBatch(ctx, func(b Batch) error {
		if err := b.Increment(sender.ID, decimal.NewFromInt(-110), nil); err != nil {
			return err
		}
		if err := b.Increment(recipient.ID, decimal.NewFromInt(100), nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, sender.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(110).Equal(got.Balance))
	assert.Equal(t, int64(0), got.Version)

	got, err = s.GetAccount(ctx, recipient.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestGormStoreVersionGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "1111111111", "50")

	stale := int64(7)
	err := s.RunBatch(ctx, func(b Batch) error {
		return b.Increment(a.ID, decimal.NewFromInt(-10), &stale)
	})
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = s.RunBatch(ctx, func(b Batch) error {
		return b.Increment("00000000-0000-0000-0000-000000000000", decimal.NewFromInt(1), nil)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreIdempotencyKeyIsUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "transfer-1"

	appendFee := func() error {
		return s.RunBatch(ctx, func(b Batch) error {
			return b.AppendFee(&models.FeeRecord{
				Type:           models.FeeTypeTransfer,
				Amount:         decimal.NewFromInt(1),
				OriginalAmount: decimal.NewFromInt(10),
				IdempotencyKey: &key,
			})
		})
	}
	require.NoError(t, appendFee())
	assert.ErrorIs(t, appendFee(), ErrDuplicateKey)

	rec, err := s.FindFeeByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(rec.OriginalAmount))
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestGormStoreSettlementLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "1111111111", "0")

	req := &models.SettlementRequest{
		Kind:      models.SettlementDeposit,
		AccountID: a.ID,
		Status:    models.SettlementPending,
		FullNames: "Account holder",
		Amount:    decimal.NewFromInt(40),
	}
	require.NoError(t, s.CreateSettlementRequest(ctx, req))
	require.NotEmpty(t, req.ID)

	pending, err := s.ListSettlementRequests(ctx, SettlementFilter{Status: models.SettlementPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decide := func() error {
		return s.RunBatch(ctx, func(b Batch) error {
			return b.DecideSettlement(SettlementDecision{
				RequestID: req.ID,
				From:      models.SettlementPending,
				To:        models.SettlementApproved,
				DecidedBy: a.ID,
			})
		})
	}
	require.NoError(t, decide())
	assert.ErrorIs(t, decide(), ErrStaleStatus)

	got, err := s.GetSettlementRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementApproved, got.Status)
	require.NotNil(t, got.DecidedAt)

	pending, err = s.ListSettlementRequests(ctx, SettlementFilter{Status: models.SettlementPending})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = s.GetSettlementRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreGameResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAccount(t, s, "1111111111", "0")

	for _, metric := range []float64{42, 38.5} {
		require.NoError(t, s.SaveGameResult(ctx, &models.GameResult{
			AccountID: a.ID,
			Game:      models.GameTyping,
			Metric:    metric,
			Logs:      models.JSON{"keystrokes": 120},
		}))
	}

	results, err := s.ListGameResults(ctx, a.ID, models.GameTyping, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.ListGameResults(ctx, a.ID, models.GameArithmetic, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
