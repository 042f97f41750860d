// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package presence

import (
	"sync"
	"testing"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) broadcast(ev models.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) counts(eventType string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev.Data.(models.CountPayload).Count)
		}
	}
	return out
}

func TestCounterTrace(t *testing.T) {
	rec := &recorder{}
	c := NewCounter(rec.broadcast)

	c.OnConnect()
	c.OnConnect()
	c.OnDisconnect()
	c.OnDisconnect()

	got := rec.counts(models.EventTotalUsersUpdated)
	want := []int64{1, 2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("broadcasts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("broadcast[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCounterNeverNegative(t *testing.T) {
	rec := &recorder{}
	c := NewCounter(rec.broadcast)

	if n := c.OnDisconnect(); n != 0 {
		t.Errorf("OnDisconnect on zero = %d, want 0", n)
	}
	if s := c.Snapshot(); s.TotalConnected != 0 {
		t.Errorf("TotalConnected = %d, want 0", s.TotalConnected)
	}
	if got := rec.counts(models.EventTotalUsersUpdated); len(got) != 1 || got[0] != 0 {
		t.Errorf("broadcasts = %v, want [0]", got)
	}
}

func TestCounterPageViews(t *testing.T) {
	rec := &recorder{}
	c := NewCounter(rec.broadcast)

	for i := 0; i < 3; i++ {
		c.OnPageView()
	}
	if s := c.Snapshot(); s.TotalViews != 3 || s.TotalConnected != 0 {
		t.Errorf("Snapshot = %+v", s)
	}
	got := rec.counts(models.EventTotalViewsUpdated)
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("view broadcasts = %v", got)
	}
}

func TestCounterConcurrent(t *testing.T) {
	const n, m = 500, 300
	c := NewCounter(nil)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); c.OnConnect() }()
	}
	wg.Wait()
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); c.OnDisconnect() }()
	}
	wg.Wait()

	if got := c.Snapshot().TotalConnected; got != n-m {
		t.Errorf("TotalConnected = %d, want %d", got, n-m)
	}
}

func TestHandlesUnique(t *testing.T) {
	handles := NewHandles()
	seen := make(map[Handle]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := handles.Next()
			mu.Lock()
			defer mu.Unlock()
			if seen[h] {
				t.Errorf("handle %v returned twice", h)
			}
			seen[h] = true
		}()
	}
	wg.Wait()
	if len(seen) != 100 {
		t.Errorf("distinct handles = %d, want 100", len(seen))
	}
	if other := NewHandles().Next(); other != 1 {
		t.Errorf("fresh allocator first handle = %v, want 1", other)
	}
}
