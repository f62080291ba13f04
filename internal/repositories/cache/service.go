package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Card index. Card numbers never change owner, so the mapping only expires
// to bound memory.

// LookupCard returns the account id cached for a card number.
func (s *CacheService) LookupCard(ctx context.Context, cardNumber string) (string, bool, error) {
	var accountID string
	found, err := s.Get(ctx, s.GenerateKey("account", "card", cardNumber), &accountID)
	if err != nil || !found {
		return "", false, err
	}
	return accountID, true, nil
}

func (s *CacheService) RememberCard(ctx context.Context, cardNumber, accountID string) error {
	return s.Set(ctx, s.GenerateKey("account", "card", cardNumber), accountID)
}

func (s *CacheService) ForgetCard(ctx context.Context, cardNumber string) error {
	return s.Delete(ctx, s.GenerateKey("account", "card", cardNumber))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
