// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package presencetest provides a recording presence.Session for tests.
package presencetest

import (
	"sync"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
)

// Session records every pushed event. Close makes later pushes fail with
// presence.ErrStaleHandle.
type Session struct {
	handle presence.Handle
	user   models.UserID

	mu     sync.Mutex
	events []models.Event
	closed bool
}

var handles = presence.NewHandles()

// NewSession returns a session with a handle no other test session uses.
func NewSession(user models.UserID) *Session {
	return &Session{handle: handles.Next(), user: user}
}

// Handle implements presence.Session.
func (s *Session) Handle() presence.Handle { return s.handle }

// User implements presence.Session.
func (s *Session) User() models.UserID { return s.user }

// Push implements presence.Session.
func (s *Session) Push(ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return presence.ErrStaleHandle
	}
	s.events = append(s.events, ev)
	return nil
}

// Close marks the session closed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (s *Session) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventsOfType returns the recorded events with the given type.
func (s *Session) EventsOfType(eventType string) []models.Event {
	var out []models.Event
	for _, ev := range s.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
