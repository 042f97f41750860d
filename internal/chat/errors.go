// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipientNotFound is returned when a private message's receiver
	// cannot be resolved.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("message persistence failed")
)

// PersistenceError reports a failed durable write.
type PersistenceError struct {
	Kind string // "broadcast" or "private"
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s message: %v", e.Kind, e.Err)
}

// Unwrap returns the store error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) true.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
