package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.10", cfg.TransferFeeRate)
	assert.Equal(t, "0.25", cfg.WithdrawalFeeRate)
	assert.Equal(t, 3, cfg.TransferMaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.TransferBackoff)
	assert.Equal(t, "postgres", cfg.StorageDriver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("TRANSFER_MAX_ATTEMPTS", "5")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("REDIS_HOST", "cache")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, 5, cfg.TransferMaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
}

func TestGetEnv(t *testing.T) {
	t.Setenv("AMAFARANGA_TEST_VALUE", "")
	assert.Equal(t, "fallback", GetEnv("AMAFARANGA_TEST_VALUE", "fallback"))

	t.Setenv("AMAFARANGA_TEST_INT", "not-a-number")
	assert.Equal(t, 7, GetIntEnv("AMAFARANGA_TEST_INT", 7))

	t.Setenv("AMAFARANGA_TEST_INT", "12")
	assert.Equal(t, 12, GetIntEnv("AMAFARANGA_TEST_INT", 7))
}
