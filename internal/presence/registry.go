// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package presence

import (
	"sort"
	"sync"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// Registry maps users to their live sessions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[models.UserID]map[Handle]Session
	count int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[models.UserID]map[Handle]Session)}
}

// Register adds s under user. It reports whether the handle was new;
// registering the same handle twice leaves the registry unchanged.
func (r *Registry) Register(user models.UserID, s Session) bool {
	h := s.Handle()

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[user]
	if !ok {
		set = make(map[Handle]Session, 1)
		r.users[user] = set
	}
	if _, dup := set[h]; dup {
		return false
	}
	set[h] = s
	r.count++
	return true
}

// Deregister removes handle from user's entry, and the entry itself when it
// becomes empty. Unknown users and handles are a no-op returning false.
func (r *Registry) Deregister(user models.UserID, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[user]
	if !ok {
		return false
	}
	if _, ok := set[h]; !ok {
		return false
	}
	delete(set, h)
	r.count--
	if len(set) == 0 {
		delete(r.users, user)
	}
	return true
}

// HandlesOf returns a sorted snapshot of user's handles. It is empty, not
// nil-with-error, for an offline user.
func (r *Registry) HandlesOf(user models.UserID) []Handle {
	r.mu.RLock()
	set := r.users[user]
	out := make([]Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SessionsOf returns user's sessions ordered by handle.
func (r *Registry) SessionsOf(user models.UserID) []Session {
	r.mu.RLock()
	set := r.users[user]
	out := make([]Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sortSessions(out)
	return out
}

// Sessions returns every live session ordered by handle.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	out := make([]Session, 0, r.count)
	for _, set := range r.users {
		for _, s := range set {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sortSessions(out)
	return out
}

// OnlineUsers returns the users with at least one session, sorted.
func (r *Registry) OnlineUsers() []models.UserID {
	r.mu.RLock()
	out := make([]models.UserID, 0, len(r.users))
	for u := range r.users {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsOnline reports whether user holds any session.
func (r *Registry) IsOnline(user models.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[user]
	return ok
}

// ConnectionCount returns the number of registered sessions.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// UserCount returns the number of online users.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func sortSessions(s []Session) {
	sort.Slice(s, func(i, j int) bool { return s[i].Handle() < s[j].Handle() })
}
