package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"metafed/pkg/platform/sentinel"
)

// InMemoryStore keeps aggregates in process memory. Expired entries are
// hidden on read and replaced on the next save.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Published
	now   func() time.Time
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		items: make(map[string]*Published),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores p under its name. An already expired aggregate is refused
// with sentinel.ErrExpired.
func (s *InMemoryStore) Save(_ context.Context, p *Published) error {
	if _, ok := p.TTL(s.now()); !ok {
		return fmt.Errorf("aggregate %q: %w", p.Name, sentinel.ErrExpired)
	}
	cp := *p
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.Name] = &cp
	return nil
}

// Find returns the aggregate stored under name.
func (s *InMemoryStore) Find(_ context.Context, name string) (*Published, error) {
	s.mu.RLock()
	p, ok := s.items[name]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if _, live := p.TTL(s.now()); !live {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}
