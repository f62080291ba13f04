// Package memstore is an in-memory repositories.Store. It backs local runs
// with STORAGE_DRIVER=memory and the service tests, and can inject storage
// faults between writes of a batch.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"amafaranga/internal/models"
	"amafaranga/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned by every operation while the store is offline.
var ErrUnavailable = errors.New("storage unavailable")

type Store struct {
	mu          sync.Mutex
	accounts    map[string]models.Account
	fees        []models.FeeRecord
	settlements map[string]models.SettlementRequest
	games       []models.GameResult
	feed        *repositories.LocalFeed
	now         func() time.Time

	offline     atomic.Bool
	cardQueries atomic.Int64

	// BeforeBatch runs at the start of RunBatch, outside the store lock.
	BeforeBatch func()
	// FailAtWrite makes the n-th write (1-based) of the next batch fail
	// with Fault. The fault is consumed by that batch.
	FailAtWrite int
	Fault       error
}

func New() *Store {
	return &Store{
		accounts:    make(map[string]models.Account),
		settlements: make(map[string]models.SettlementRequest),
		feed:        repositories.NewLocalFeed(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetOffline toggles simulated unreachability.
func (s *Store) SetOffline(offline bool) {
	s.offline.Store(offline)
}

// CardQueries counts FindAccountByCardNumber calls.
func (s *Store) CardQueries() int64 {
	return s.cardQueries.Load()
}

// CreateAccount adds an account, assigning an ID when missing.
func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	for _, existing := range s.accounts {
		if existing.CardNumber == account.CardNumber {
			return repositories.ErrDuplicateKey
		}
	}
	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &account, nil
}

func (s *Store) FindAccountByCardNumber(ctx context.Context, cardNumber string) (*models.Account, error) {
	s.cardQueries.Add(1)
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.CardNumber == cardNumber {
			a := account
			return &a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) Subscribe(ctx context.Context, accountID string) (<-chan repositories.BalanceUpdate, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	return s.feed.Subscribe(ctx, accountID)
}

// Feed exposes the underlying feed, mostly for subscriber counts in tests.
func (s *Store) Feed() *repositories.LocalFeed {
	return s.feed
}

func (s *Store) RunBatch(ctx context.Context, fn func(repositories.Batch) error) error {
	if s.BeforeBatch != nil {
		s.BeforeBatch()
	}
	if s.offline.Load() {
		return ErrUnavailable
	}

	s.mu.Lock()
	b := &batch{
		store:       s,
		accounts:    make(map[string]models.Account),
		settlements: make(map[string]models.SettlementRequest),
		failAt:      s.FailAtWrite,
		fault:       s.Fault,
		now:         s.now(),
	}
	s.FailAtWrite = 0

	if err := fn(b); err != nil {
		s.mu.Unlock()
		return err
	}

	var updates []repositories.BalanceUpdate
	for _, id := range b.order {
		account := b.accounts[id]
		s.accounts[id] = account
		updates = append(updates, repositories.BalanceUpdate{
			AccountID: id,
			Balance:   account.Balance,
			Version:   account.Version,
		})
	}
	s.fees = append(s.fees, b.fees...)
	for id, req := range b.settlements {
		s.settlements[id] = req
	}
	s.mu.Unlock()

	for _, update := range updates {
		_ = s.feed.Publish(ctx, update)
	}
	return nil
}

func (s *Store) CreateSettlementRequest(ctx context.Context, req *models.SettlementRequest) error {
	if s.offline.Load() {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := s.now()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.settlements[req.ID] = *req
	return nil
}

func (s *Store) GetSettlementRequest(ctx context.Context, id string) (*models.SettlementRequest, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.settlements[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &req, nil
}

func (s *Store) ListSettlementRequests(ctx context.Context, filter repositories.SettlementFilter) ([]models.SettlementRequest, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SettlementRequest
	for _, req := range s.settlements {
		if filter.AccountID != "" && req.AccountID != filter.AccountID {
			continue
		}
		if filter.Kind != "" && req.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) FindFeeByIdempotencyKey(ctx context.Context, key string) (*models.FeeRecord, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.fees {
		if rec.IdempotencyKey != nil && *rec.IdempotencyKey == key {
			r := rec
			return &r, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// FeeRecords returns a copy of the fee ledger in append order.
func (s *Store) FeeRecords() []models.FeeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FeeRecord(nil), s.fees...)
}

// Balance is a test shortcut for the stored balance of an account.
func (s *Store) Balance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

func (s *Store) SaveGameResult(ctx context.Context, result *models.GameResult) error {
	if s.offline.Load() {
		return ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CreatedAt = s.now()
	s.games = append(s.games, *result)
	return nil
}

func (s *Store) ListGameResults(ctx context.Context, accountID string, game models.GameKind, limit int) ([]models.GameResult, error) {
	if s.offline.Load() {
		return nil, ErrUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.GameResult
	for i := len(s.games) - 1; i >= 0; i-- {
		g := s.games[i]
		if g.AccountID == accountID && g.Game == game {
			out = append(out, g)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// batch stages writes against copies; RunBatch applies them only when fn
// succeeds.
type batch struct {
	store       *Store
	accounts    map[string]models.Account
	order       []string
	fees        []models.FeeRecord
	settlements map[string]models.SettlementRequest
	writes      int
	failAt      int
	fault       error
	now         time.Time
}

func (b *batch) write() error {
	b.writes++
	if b.failAt > 0 && b.writes == b.failAt {
		if b.fault != nil {
			return b.fault
		}
		return ErrUnavailable
	}
	return nil
}

func (b *batch) Increment(accountID string, delta decimal.Decimal, expectedVersion *int64) error {
	if err := b.write(); err != nil {
		return err
	}

	account, staged := b.accounts[accountID]
	if !staged {
		stored, ok := b.store.accounts[accountID]
		if !ok {
			return repositories.ErrNotFound
		}
		account = stored
	}
	if expectedVersion != nil && account.Version != *expectedVersion {
		return repositories.ErrVersionConflict
	}

	account.Balance = account.Balance.Add(delta)
	account.Version++
	account.UpdatedAt = b.now
	if !staged {
		b.order = append(b.order, accountID)
	}
	b.accounts[accountID] = account
	return nil
}

func (b *batch) AppendFee(rec *models.FeeRecord) error {
	if err := b.write(); err != nil {
		return err
	}
	if rec.IdempotencyKey != nil {
		for _, fees := range [][]models.FeeRecord{b.store.fees, b.fees} {
			for _, existing := range fees {
				if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *rec.IdempotencyKey {
					return repositories.ErrDuplicateKey
				}
			}
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = b.now
	b.fees = append(b.fees, *rec)
	return nil
}

func (b *batch) DecideSettlement(d repositories.SettlementDecision) error {
	if err := b.write(); err != nil {
		return err
	}

	req, staged := b.settlements[d.RequestID]
	if !staged {
		stored, ok := b.store.settlements[d.RequestID]
		if !ok {
			return repositories.ErrNotFound
		}
		req = stored
	}
	if req.Status != d.From {
		return repositories.ErrStaleStatus
	}

	decidedAt := b.now
	req.Status = d.To
	req.DecidedAt = &decidedAt
	req.DecisionNote = d.Note
	req.UpdatedAt = b.now
	if d.DecidedBy != "" {
		by := d.DecidedBy
		req.DecidedBy = &by
	}
	b.settlements[d.RequestID] = req
	return nil
}
