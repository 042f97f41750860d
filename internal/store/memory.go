// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"sync"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// MemoryStore keeps everything in process memory. Used in development and
// tests; contents are lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	broadcasts []models.BroadcastMessage
	private    []models.PrivateMessage
	profiles   map[models.UserID]models.Profile
	byName     map[string]models.UserID
	closed     bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[models.UserID]models.Profile),
		byName:   make(map[string]models.UserID),
	}
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// SaveBroadcastMessage implements MessageStore.
func (s *MemoryStore) SaveBroadcastMessage(_ context.Context, msg *models.BroadcastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.broadcasts = append(s.broadcasts, *msg)
	return nil
}

// SavePrivateMessage implements MessageStore.
func (s *MemoryStore) SavePrivateMessage(_ context.Context, msg *models.PrivateMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.private = append(s.private, *msg)
	return nil
}

// UpsertUser implements Store.
func (s *MemoryStore) UpsertUser(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old, existed := s.profiles[p.UserID]
	s.profiles[p.UserID] = p
	if existed && old.Username != "" {
		if key := NormalizeName(old.Username); key != NormalizeName(p.Username) && s.byName[key] == p.UserID {
			s.reassignName(key)
		}
	}
	if p.Username != "" {
		s.byName[NormalizeName(p.Username)] = p.UserID
	}
	return nil
}

// reassignName points key at another user holding the same folded name,
// or drops it when none is left. Caller holds mu.
func (s *MemoryStore) reassignName(key string) {
	delete(s.byName, key)
	for id, p := range s.profiles {
		if p.Username != "" && NormalizeName(p.Username) == key {
			s.byName[key] = id
			return
		}
	}
}

// LookupByName implements UserDirectory.
func (s *MemoryStore) LookupByName(_ context.Context, name string) (models.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrClosed
	}
	id, ok := s.byName[NormalizeName(name)]
	if !ok {
		return "", ErrUserNotFound
	}
	return id, nil
}

// LookupProfile implements UserDirectory.
func (s *MemoryStore) LookupProfile(_ context.Context, id models.UserID) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.Profile{}, ErrClosed
	}
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, ErrUserNotFound
	}
	return p, nil
}

// RecentBroadcasts implements History.
func (s *MemoryStore) RecentBroadcasts(_ context.Context, limit int) ([]models.BroadcastMessage, error) {
	limit = ClampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	start := len(s.broadcasts) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.BroadcastMessage, len(s.broadcasts)-start)
	copy(out, s.broadcasts[start:])
	return out, nil
}

// PrivateConversation implements History.
func (s *MemoryStore) PrivateConversation(_ context.Context, a, b models.UserID, limit int) ([]models.PrivateMessage, error) {
	limit = ClampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []models.PrivateMessage
	for i := len(s.private) - 1; i >= 0 && len(out) < limit; i-- {
		if SameConversation(&s.private[i], a, b) {
			out = append(out, s.private[i])
		}
	}
	reverse(out)
	return out, nil
}

// Counts returns the number of stored broadcast and private messages.
func (s *MemoryStore) Counts() (broadcasts, private int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.broadcasts), len(s.private)
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
