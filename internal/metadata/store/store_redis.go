package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"metafed/pkg/platform/sentinel"
)

const publishedKeyPrefix = "metafed:md:"

// RedisStore shares published aggregates between instances. Keys expire
// together with the aggregate.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock sets the time source used to compute key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedis constructs a Redis-backed store. The client lifecycle is managed
// by the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save stores p with a TTL matching its expiry.
func (s *RedisStore) Save(ctx context.Context, p *Published) error {
	ttl, ok := p.TTL(s.now())
	if !ok {
		return fmt.Errorf("aggregate %q: %w", p.Name, sentinel.ErrExpired)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode aggregate %q: %w", p.Name, err)
	}
	if err := s.client.Set(ctx, publishedKeyPrefix+p.Name, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store aggregate %q: %w", p.Name, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

// Find returns the aggregate stored under name.
func (s *RedisStore) Find(ctx context.Context, name string) (*Published, error) {
	payload, err := s.client.Get(ctx, publishedKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load aggregate %q: %w", name, errors.Join(sentinel.ErrUnavailable, err))
	}
	var p Published
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode aggregate %q: %w", name, err)
	}
	return &p, nil
}
