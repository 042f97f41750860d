// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// countingStore counts profile lookups that reach the backend.
type countingStore struct {
	*MemoryStore
	lookups int
}

func (c *countingStore) LookupProfile(ctx context.Context, id models.UserID) (models.Profile, error) {
	c.lookups++
	return c.MemoryStore.LookupProfile(ctx, id)
}

func TestCachedStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := NewCachedStore(NewMemoryStore(), 100, time.Minute)
		if err != nil {
			t.Fatalf("NewCachedStore: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestCachedStoreServesRepeatLookups(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s, err := NewCachedStore(inner, 100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.UpsertUser(ctx, models.Profile{UserID: "u-1", Username: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.LookupProfile(ctx, "u-1"); err != nil {
		t.Fatal(err)
	}
	s.profiles.Wait()
	for range 5 {
		p, err := s.LookupProfile(ctx, "u-1")
		if err != nil || p.DisplayName != "Alice" {
			t.Fatalf("LookupProfile = %+v, %v", p, err)
		}
	}
	if inner.lookups != 1 {
		t.Errorf("backend lookups = %d, want 1", inner.lookups)
	}

	if err := s.UpsertUser(ctx, models.Profile{UserID: "u-1", Username: "alice", DisplayName: "Alice B"}); err != nil {
		t.Fatal(err)
	}
	s.profiles.Wait()
	p, err := s.LookupProfile(ctx, "u-1")
	if err != nil || p.DisplayName != "Alice B" {
		t.Errorf("after upsert LookupProfile = %+v, %v", p, err)
	}
	if inner.lookups != 2 {
		t.Errorf("backend lookups = %d, want 2", inner.lookups)
	}
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s, err := NewCachedStore(inner, 100, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	for range 3 {
		if _, err := s.LookupProfile(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	}
	if inner.lookups != 3 {
		t.Errorf("backend lookups = %d, want 3", inner.lookups)
	}
	if s.Unwrap() != Store(inner) {
		t.Error("Unwrap returned a different store")
	}
}
