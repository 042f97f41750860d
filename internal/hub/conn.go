// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
)

// State is a connection's lifecycle state.
type State int32

// Connection states. Closed is terminal.
const (
	StateConnecting State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one client connection on an Endpoint. It implements
// presence.Session; the transport drains Send and calls Handle for each
// inbound frame.
type Conn struct {
	handle   presence.Handle
	profile  models.Profile
	endpoint *Endpoint
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32

	// mu orders Push against Close so send is never written after close.
	mu   sync.Mutex
	send chan models.Event
}

func newConn(e *Endpoint, profile models.Profile) *Conn {
	h := e.cfg.Handles.Next()
	logger := logging.WithComponent("hub").With().
		Str("endpoint", e.kind.String()).
		Stringer("handle", h).
		Str("user", profile.UserID.String()).
		Logger()
	ctx := logging.ContextWithLogger(context.Background(), logger)
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx, cancel := context.WithCancel(ctx)

	c := &Conn{
		handle:   h,
		profile:  profile,
		endpoint: e,
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan models.Event, e.cfg.SendBuffer),
	}
	if e.cfg.InvokeRate > 0 {
		burst := e.cfg.InvokeBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(e.cfg.InvokeRate), burst)
	}
	return c
}

// Handle implements presence.Session.
func (c *Conn) Handle() presence.Handle { return c.handle }

// User implements presence.Session.
func (c *Conn) User() models.UserID { return c.profile.UserID }

// Profile returns the identity the connection was opened with.
func (c *Conn) Profile() models.Profile { return c.profile }

// State returns the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// Context is cancelled when the connection closes and carries the
// connection's logger.
func (c *Conn) Context() context.Context { return c.ctx }

// Done is closed when the connection closes.
func (c *Conn) Done() <-chan struct{} { return c.ctx.Done() }

// Send yields queued outbound events. It is closed after Close.
func (c *Conn) Send() <-chan models.Event { return c.send }

// Push queues ev without blocking. It implements presence.Session.
func (c *Conn) Push(ev models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateClosed {
		return ErrStaleHandle
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return presence.ErrBufferFull
	}
}

// activate moves Connecting to Active.
func (c *Conn) activate() error {
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		return ErrNotActive
	}
	return nil
}

// Close moves the connection to Closed, leaving the endpoint if it was
// active. Further calls are no-ops.
func (c *Conn) Close() {
	c.mu.Lock()
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		c.mu.Unlock()
		return
	}
	close(c.send)
	c.mu.Unlock()

	c.cancel()
	if prev == StateActive {
		c.endpoint.leave(c)
	}
}

// allow applies the per-connection invoke rate.
func (c *Conn) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}
