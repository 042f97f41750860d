// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// BreakerConfig configures BreakerStore.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OnStateChange is called after every transition, in addition to logging.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns sensible breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "store",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore routes every backend call through a circuit breaker. While
// the breaker is open calls fail fast with gobreaker.ErrOpenState.
// ErrUserNotFound is treated as a successful call.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, cfg BreakerConfig) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUserNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state name.
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

// Unwrap returns the wrapped store.
func (s *BreakerStore) Unwrap() Store { return s.next }

// Name implements Store.
func (s *BreakerStore) Name() string { return s.next.Name() }

func (s *BreakerStore) run(fn func() error) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// SaveBroadcastMessage implements MessageStore.
func (s *BreakerStore) SaveBroadcastMessage(ctx context.Context, msg *models.BroadcastMessage) error {
	return s.run(func() error { return s.next.SaveBroadcastMessage(ctx, msg) })
}

// SavePrivateMessage implements MessageStore.
func (s *BreakerStore) SavePrivateMessage(ctx context.Context, msg *models.PrivateMessage) error {
	return s.run(func() error { return s.next.SavePrivateMessage(ctx, msg) })
}

// UpsertUser implements Store.
func (s *BreakerStore) UpsertUser(ctx context.Context, p models.Profile) error {
	return s.run(func() error { return s.next.UpsertUser(ctx, p) })
}

// LookupByName implements UserDirectory.
func (s *BreakerStore) LookupByName(ctx context.Context, name string) (models.UserID, error) {
	var id models.UserID
	err := s.run(func() error {
		var err error
		id, err = s.next.LookupByName(ctx, name)
		return err
	})
	return id, err
}

// LookupProfile implements UserDirectory.
func (s *BreakerStore) LookupProfile(ctx context.Context, id models.UserID) (models.Profile, error) {
	var p models.Profile
	err := s.run(func() error {
		var err error
		p, err = s.next.LookupProfile(ctx, id)
		return err
	})
	return p, err
}

// RecentBroadcasts implements History.
func (s *BreakerStore) RecentBroadcasts(ctx context.Context, limit int) ([]models.BroadcastMessage, error) {
	var out []models.BroadcastMessage
	err := s.run(func() error {
		var err error
		out, err = s.next.RecentBroadcasts(ctx, limit)
		return err
	})
	return out, err
}

// PrivateConversation implements History.
func (s *BreakerStore) PrivateConversation(ctx context.Context, a, b models.UserID, limit int) ([]models.PrivateMessage, error) {
	var out []models.PrivateMessage
	err := s.run(func() error {
		var err error
		out, err = s.next.PrivateConversation(ctx, a, b, limit)
		return err
	})
	return out, err
}

// Ping bypasses the breaker so health checks see the backend directly.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close implements Store.
func (s *BreakerStore) Close() error {
	return s.next.Close()
}
