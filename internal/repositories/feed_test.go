package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFeedDeliversOnlyToSubscribedAccount(t *testing.T) {
	feed := NewLocalFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, BalanceUpdate{AccountID: "b", Balance: decimal.NewFromInt(5), Version: 1}))
	require.NoError(t, feed.Publish(ctx, BalanceUpdate{AccountID: "a", Balance: decimal.NewFromInt(7), Version: 2}))

	got := <-ch
	assert.Equal(t, "a", got.AccountID)
	assert.Equal(t, int64(2), got.Version)
	assert.Len(t, ch, 0)
}

func TestLocalFeedDropsOldestWhenFull(t *testing.T) {
	feed := NewLocalFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := feed.Subscribe(ctx, "a")
	require.NoError(t, err)

	for v := int64(1); v <= feedBuffer+3; v++ {
		require.NoError(t, feed.Publish(ctx, BalanceUpdate{AccountID: "a", Version: v}))
	}

	require.Len(t, ch, feedBuffer)
	first := <-ch
	assert.Equal(t, int64(4), first.Version)

	var last BalanceUpdate
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, int64(feedBuffer+3), last.Version)
}

func TestLocalFeedUnsubscribesOnCancel(t *testing.T) {
	feed := NewLocalFeed()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := feed.Subscribe(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers("a"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, feed.Subscribers("a"))
	assert.NoError(t, feed.Publish(context.Background(), BalanceUpdate{AccountID: "a"}))
}
