package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"amafaranga/internal/repositories"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const balanceFeedBuffer = 8

// BalanceFeed fans committed balance changes out over Redis pub/sub so every
// API instance sees changes made by the others.
type BalanceFeed struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewBalanceFeed(client *redis.Client, log zerolog.Logger) *BalanceFeed {
	return &BalanceFeed{
		client: client,
		log:    log.With().Str("component", "balance_feed").Logger(),
	}
}

func balanceChannel(accountID string) string {
	return "balance:" + accountID
}

func (f *BalanceFeed) Publish(ctx context.Context, update repositories.BalanceUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal balance update: %w", err)
	}
	if err := f.client.Publish(ctx, balanceChannel(update.AccountID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish balance update: %w", err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription. The channel is
// closed when ctx is done or the connection is lost.
func (f *BalanceFeed) Subscribe(ctx context.Context, accountID string) (<-chan repositories.BalanceUpdate, error) {
	sub := f.client.Subscribe(ctx, balanceChannel(accountID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to balance updates: %w", err)
	}

	out := make(chan repositories.BalanceUpdate, balanceFeedBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update repositories.BalanceUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					f.log.Warn().Err(err).Str("account_id", accountID).Msg("malformed balance update")
					continue
				}
				offer(out, update)
			}
		}
	}()

	return out, nil
}

// offer drops the oldest buffered update when the reader is behind.
func offer(out chan repositories.BalanceUpdate, update repositories.BalanceUpdate) {
	select {
	case out <- update:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- update:
	default:
	}
}
