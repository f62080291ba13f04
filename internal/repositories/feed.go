package repositories

import (
	"context"
	"sync"
)

const feedBuffer = 8

// LocalFeed is an in-process BalanceFeed. Slow subscribers lose the oldest
// buffered update, never the newest.
type LocalFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan BalanceUpdate]struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[string]map[chan BalanceUpdate]struct{})}
}

func (f *LocalFeed) Publish(ctx context.Context, update BalanceUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs[update.AccountID] {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
	return nil
}

// Subscribe registers a channel that is closed once ctx is done.
func (f *LocalFeed) Subscribe(ctx context.Context, accountID string) (<-chan BalanceUpdate, error) {
	ch := make(chan BalanceUpdate, feedBuffer)

	f.mu.Lock()
	if f.subs[accountID] == nil {
		f.subs[accountID] = make(map[chan BalanceUpdate]struct{})
	}
	f.subs[accountID][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs[accountID], ch)
		if len(f.subs[accountID]) == 0 {
			delete(f.subs, accountID)
		}
		f.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Subscribers returns how many channels are registered for an account.
func (f *LocalFeed) Subscribers(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[accountID])
}
