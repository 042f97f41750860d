// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package store defines the persistence ports used by the messaging core and
// provides in-memory, BadgerDB and circuit-breaker adapters. The DuckDB
// adapter lives in internal/database.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

var (
	// ErrUserNotFound is returned by directory lookups for unknown users.
	ErrUserNotFound = errors.New("user not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

// MessageStore durably records messages. A nil error means the message is
// stored; callers deliver only after that.
type MessageStore interface {
	SaveBroadcastMessage(ctx context.Context, msg *models.BroadcastMessage) error
	SavePrivateMessage(ctx context.Context, msg *models.PrivateMessage) error
}

// UserDirectory resolves users. LookupByName matches usernames
// case-insensitively.
type UserDirectory interface {
	LookupByName(ctx context.Context, name string) (models.UserID, error)
	LookupProfile(ctx context.Context, id models.UserID) (models.Profile, error)
}

// History reads stored messages back, oldest first.
type History interface {
	RecentBroadcasts(ctx context.Context, limit int) ([]models.BroadcastMessage, error)
	PrivateConversation(ctx context.Context, a, b models.UserID, limit int) ([]models.PrivateMessage, error)
}

// Store is the full persistence surface an adapter provides.
type Store interface {
	MessageStore
	UserDirectory
	History

	// UpsertUser records or refreshes a user's profile.
	UpsertUser(ctx context.Context, p models.Profile) error

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Name identifies the backend in logs and health output.
	Name() string

	Close() error
}

// Default and maximum history page sizes.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ClampLimit applies the history page bounds.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

// NormalizeName folds a username for case-insensitive lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameConversation reports whether m was exchanged between a and b.
func SameConversation(m *models.PrivateMessage, a, b models.UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
