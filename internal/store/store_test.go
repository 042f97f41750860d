// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// runStoreContract exercises behavior every adapter must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("case-insensitive lookup", func(t *testing.T) {
		s := newStore(t)
		if err := s.UpsertUser(ctx, models.Profile{UserID: "u-bob", Username: "Bob", DisplayName: "Bobby"}); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		for _, name := range []string{"bob", "BOB", "Bob", " bob "} {
			id, err := s.LookupByName(ctx, name)
			if err != nil {
				t.Fatalf("LookupByName(%q): %v", name, err)
			}
			if id != "u-bob" {
				t.Errorf("LookupByName(%q) = %q, want u-bob", name, id)
			}
		}
		p, err := s.LookupProfile(ctx, "u-bob")
		if err != nil {
			t.Fatalf("LookupProfile: %v", err)
		}
		if p.DisplayName != "Bobby" {
			t.Errorf("DisplayName = %q", p.DisplayName)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.LookupByName(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("LookupByName err = %v, want ErrUserNotFound", err)
		}
		if _, err := s.LookupProfile(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("LookupProfile err = %v, want ErrUserNotFound", err)
		}
	})

	t.Run("rename drops old name", func(t *testing.T) {
		s := newStore(t)
		_ = s.UpsertUser(ctx, models.Profile{UserID: "u1", Username: "old"})
		_ = s.UpsertUser(ctx, models.Profile{UserID: "u1", Username: "new"})
		if _, err := s.LookupByName(ctx, "old"); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("old name still resolves: %v", err)
		}
		if id, err := s.LookupByName(ctx, "NEW"); err != nil || id != "u1" {
			t.Errorf("LookupByName(NEW) = %q, %v", id, err)
		}
	})

	t.Run("broadcast history oldest first", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			msg := &models.BroadcastMessage{
				ID:       fmt.Sprintf("m%d", i),
				SenderID: "alice",
				Text:     fmt.Sprintf("hello %d", i),
				SentAt:   base.Add(time.Duration(i) * time.Second),
			}
			if err := s.SaveBroadcastMessage(ctx, msg); err != nil {
				t.Fatalf("SaveBroadcastMessage: %v", err)
			}
		}

		got, err := s.RecentBroadcasts(ctx, 3)
		if err != nil {
			t.Fatalf("RecentBroadcasts: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		for i, want := range []string{"m2", "m3", "m4"} {
			if got[i].ID != want {
				t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want)
			}
		}
	})

	t.Run("private conversation both directions", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		msgs := []models.PrivateMessage{
			{ID: "p1", SenderID: "alice", ReceiverID: "bob", Text: "hi", SentAt: base},
			{ID: "p2", SenderID: "bob", ReceiverID: "alice", Text: "hey", SentAt: base.Add(time.Second)},
			{ID: "p3", SenderID: "alice", ReceiverID: "carol", Text: "other", SentAt: base.Add(2 * time.Second)},
			{ID: "p4", SenderID: "alice", ReceiverID: "bob", Text: "bye", SentAt: base.Add(3 * time.Second)},
		}
		for i := range msgs {
			if err := s.SavePrivateMessage(ctx, &msgs[i]); err != nil {
				t.Fatalf("SavePrivateMessage: %v", err)
			}
		}

		got, err := s.PrivateConversation(ctx, "bob", "alice", 10)
		if err != nil {
			t.Fatalf("PrivateConversation: %v", err)
		}
		ids := make([]string, len(got))
		for i, m := range got {
			ids[i] = m.ID
		}
		if fmt.Sprint(ids) != "[p1 p2 p4]" {
			t.Errorf("conversation = %v, want [p1 p2 p4]", ids)
		}
	})

	t.Run("conversation ids containing separators", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		msgs := []models.PrivateMessage{
			{ID: "p1", SenderID: "alice", ReceiverID: "bob:1", Text: "for bob:1", SentAt: base},
			{ID: "p2", SenderID: "alice", ReceiverID: "bob\x00x", Text: "for bob nul", SentAt: base.Add(time.Second)},
			{ID: "p3", SenderID: "al", ReceiverID: "ice:bob", Text: "split ids", SentAt: base.Add(2 * time.Second)},
			{ID: "p4", SenderID: "bob", ReceiverID: "alice", Text: "mine", SentAt: base.Add(3 * time.Second)},
		}
		for i := range msgs {
			if err := s.SavePrivateMessage(ctx, &msgs[i]); err != nil {
				t.Fatalf("SavePrivateMessage: %v", err)
			}
		}

		got, err := s.PrivateConversation(ctx, "bob", "alice", 10)
		if err != nil {
			t.Fatalf("PrivateConversation: %v", err)
		}
		if len(got) != 1 || got[0].ID != "p4" {
			t.Errorf("bob<->alice = %+v, want only p4", got)
		}

		got, err = s.PrivateConversation(ctx, "bob:1", "alice", 10)
		if err != nil {
			t.Fatalf("PrivateConversation: %v", err)
		}
		if len(got) != 1 || got[0].ID != "p1" {
			t.Errorf("bob:1<->alice = %+v, want only p1", got)
		}
	})

	t.Run("rename keeps a shared folded name resolvable", func(t *testing.T) {
		for _, order := range [][]models.UserID{{"u1", "u2"}, {"u2", "u1"}} {
			s := newStore(t)
			names := map[models.UserID]string{"u1": "bob", "u2": "Bob"}
			for _, id := range order {
				if err := s.UpsertUser(ctx, models.Profile{UserID: id, Username: names[id]}); err != nil {
					t.Fatalf("UpsertUser(%s): %v", id, err)
				}
			}
			if err := s.UpsertUser(ctx, models.Profile{UserID: "u1", Username: "robert"}); err != nil {
				t.Fatalf("rename: %v", err)
			}

			if id, err := s.LookupByName(ctx, "BOB"); err != nil || id != "u2" {
				t.Errorf("order %v: LookupByName(BOB) = %q, %v, want u2", order, id, err)
			}
			if id, err := s.LookupByName(ctx, "Robert"); err != nil || id != "u1" {
				t.Errorf("order %v: LookupByName(Robert) = %q, %v, want u1", order, id, err)
			}
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s := NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := OpenBadger(BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatalf("OpenBadger: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(BadgerOptions{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	msg := &models.PrivateMessage{ID: "p1", SenderID: "alice", ReceiverID: "bob", Text: "later", SentAt: time.Now()}
	if err := s.SavePrivateMessage(ctx, msg); err != nil {
		t.Fatalf("SavePrivateMessage: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenBadger(BadgerOptions{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.PrivateConversation(ctx, "alice", "bob", 0)
	if err != nil {
		t.Fatalf("PrivateConversation: %v", err)
	}
	if len(got) != 1 || got[0].Text != "later" {
		t.Errorf("conversation after reopen = %+v", got)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	_ = s.Close()
	if err := s.SaveBroadcastMessage(context.Background(), &models.BroadcastMessage{}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping err = %v, want ErrClosed", err)
	}
	if _, err := s.RecentBroadcasts(context.Background(), 10); !errors.Is(err, ErrClosed) {
		t.Errorf("RecentBroadcasts err = %v, want ErrClosed", err)
	}
	if _, err := s.PrivateConversation(context.Background(), "a", "b", 10); !errors.Is(err, ErrClosed) {
		t.Errorf("PrivateConversation err = %v, want ErrClosed", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{10, 10},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
