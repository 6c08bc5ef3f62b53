package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"metafed/pkg/platform/sentinel"
)

// Backend is the store a BreakerStore guards.
type Backend interface {
	Save(ctx context.Context, p *Published) error
	Find(ctx context.Context, name string) (*Published, error)
}

// BreakerStore stops calling a failing backend for a while so that requests
// fail fast with sentinel.ErrUnavailable. Missing and expired aggregates do
// not count as failures.
type BreakerStore struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker
}

type breakerConfig struct {
	maxFailures  uint32
	openTimeout  time.Duration
	halfOpenReqs uint32
	logger       *slog.Logger
}

// BreakerOption configures a BreakerStore.
type BreakerOption func(*breakerConfig)

// WithMaxFailures sets how many consecutive failures open the circuit.
func WithMaxFailures(n uint32) BreakerOption {
	return func(c *breakerConfig) {
		c.maxFailures = n
	}
}

// WithOpenTimeout sets how long the circuit stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		c.openTimeout = d
	}
}

// WithBreakerLogger logs circuit state changes.
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(c *breakerConfig) {
		c.logger = logger
	}
}

// NewBreaker wraps backend. By default three consecutive failures open the
// circuit for 30 seconds.
func NewBreaker(name string, backend Backend, opts ...BreakerOption) *BreakerStore {
	cfg := breakerConfig{
		maxFailures:  3,
		openTimeout:  30 * time.Second,
		halfOpenReqs: 1,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &BreakerStore{
		backend: backend,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.halfOpenReqs,
			Timeout:     cfg.openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.maxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				cfg.logger.Warn("store circuit changed state",
					"store", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Save stores p through the breaker.
func (s *BreakerStore) Save(ctx context.Context, p *Published) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.backend.Save(ctx, p)
	})
	return s.translate(err)
}

// Find loads the aggregate named name through the breaker.
func (s *BreakerStore) Find(ctx context.Context, name string) (*Published, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.backend.Find(ctx, name)
	})
	if err != nil {
		return nil, s.translate(err)
	}
	p, _ := res.(*Published)
	return p, nil
}

// Open reports whether calls are currently rejected.
func (s *BreakerStore) Open() bool {
	return s.breaker.State() == gobreaker.StateOpen
}

func (s *BreakerStore) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("store %s: %w", s.breaker.Name(), errors.Join(sentinel.ErrUnavailable, err))
	}
	return err
}
