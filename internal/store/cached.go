// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/cache"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// CachedStore serves LookupProfile from a bounded TTL cache. Every
// broadcast resolves the sender's display fields, so the chat hot path
// reads from memory once a sender has been seen. UpsertUser evicts the
// cached entry. Misses and errors are not cached.
// Keys are plain strings because ristretto.Key does not admit named
// string types.
type CachedStore struct {
	Store
	profiles *cache.Cache[string, models.Profile]
}

// NewCachedStore wraps next with a profile cache of the given size.
func NewCachedStore(next Store, capacity int64, ttl time.Duration) (*CachedStore, error) {
	c, err := cache.New[string, models.Profile](cache.Config{
		Name:     "profiles",
		Capacity: capacity,
		TTL:      ttl,
	})
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: next, profiles: c}, nil
}

// Unwrap returns the wrapped store.
func (s *CachedStore) Unwrap() Store { return s.Store }

// LookupProfile implements UserDirectory.
func (s *CachedStore) LookupProfile(ctx context.Context, id models.UserID) (models.Profile, error) {
	if p, ok := s.profiles.Get(string(id)); ok {
		return p, nil
	}
	p, err := s.Store.LookupProfile(ctx, id)
	if err != nil {
		return p, err
	}
	s.profiles.Set(string(id), p)
	return p, nil
}

// UpsertUser implements Store.
func (s *CachedStore) UpsertUser(ctx context.Context, p models.Profile) error {
	err := s.Store.UpsertUser(ctx, p)
	s.profiles.Delete(string(p.UserID))
	return err
}

// Close releases the cache and closes the wrapped store.
func (s *CachedStore) Close() error {
	s.profiles.Close()
	return s.Store.Close()
}
