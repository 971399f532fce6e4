package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-vocab/internal/vocab/index"
	"github.com/Adithya-Monish-Kumar-K/review-vocab/pkg/redis"
)

// KV is the subset of the Redis client the store needs.
type KV interface {
	Bytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisStore keeps the framed index bytes under prefix+name, without expiry.
type RedisStore struct {
	kv     KV
	prefix string
	isNil  func(error) bool
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{kv: client, prefix: prefix, isNil: redis.IsNilError}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) Save(ctx context.Context, name string, ix *index.Index) error {
	data, err := index.Encode(ix)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key(name), data, 0); err != nil {
		return fmt.Errorf("storing index in redis key %s: %w", s.key(name), err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (*index.Index, error) {
	data, err := s.kv.Bytes(ctx, s.key(name))
	if err != nil {
		if s.isNil != nil && s.isNil(err) {
			return nil, fmt.Errorf("%w: redis key %s", ErrNotFound, s.key(name))
		}
		return nil, fmt.Errorf("reading redis key %s: %w", s.key(name), err)
	}
	return index.Decode(data, "redis:"+s.key(name))
}
