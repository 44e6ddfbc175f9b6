package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Used when the offline state is
// mirrored to a shared backend instead of (or in addition to) device storage.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key, e.g. per user or per device.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("storage: redis client is required")
	}

	store := &RedisStore{client: client}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// GetItem returns the value stored under key.
func (s *RedisStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return value, nil
}

// SetItem stores value under key with no expiry; sweeping is the caller's
// responsibility, same as for every other backend.
func (s *RedisStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// RemoveItem deletes key. Absent keys are a no-op.
func (s *RedisStore) RemoveItem(ctx context.Context, key string) error {
	return s.MultiRemove(ctx, key)
}

// MultiRemove deletes all keys in one DEL command.
func (s *RedisStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.key(key)
	}

	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}

	return s.prefix + ":" + key
}
