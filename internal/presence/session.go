// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package presence

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// Push errors. Callers fanning out drop the delivery on either and move on.
var (
	// ErrStaleHandle is returned when pushing to a connection that has closed.
	ErrStaleHandle = errors.New("push to closed connection")

	// ErrBufferFull is returned when a connection's send buffer has no room.
	ErrBufferFull = errors.New("connection send buffer full")
)

// Handle identifies one connection for the lifetime of the process.
type Handle uint64

// String implements fmt.Stringer.
func (h Handle) String() string { return strconv.FormatUint(uint64(h), 10) }

// Handles allocates connection handles. Endpoints that share a registry
// must share one Handles.
type Handles struct {
	seq atomic.Uint64
}

// NewHandles returns an allocator whose first handle is 1.
func NewHandles() *Handles { return &Handles{} }

// Next returns a handle this allocator has never returned before.
func (a *Handles) Next() Handle {
	return Handle(a.seq.Add(1))
}

// Session is a live connection that can receive pushed events.
//
// Push must not block. It returns ErrStaleHandle once the connection is
// closed and ErrBufferFull when the event cannot be queued.
type Session interface {
	Handle() Handle
	User() models.UserID
	Push(ev models.Event) error
}
