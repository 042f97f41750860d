// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/chat"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
)

// Kind identifies an endpoint.
type Kind int

// Endpoint kinds.
const (
	KindChat Kind = iota
	KindPrivateChat
	KindPresence
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindPrivateChat:
		return "private"
	case KindPresence:
		return "presence"
	default:
		return "unknown"
	}
}

// TopicPresenceConnected is published when a user opens a presence connection.
const TopicPresenceConnected = "presence.connected"

// Config tunes an endpoint.
type Config struct {
	SendBuffer       int
	MaxTextLength    int
	InvokeRate       float64
	InvokeBurst      int
	OperationTimeout time.Duration
	SampleInterval   time.Duration

	// Handles allocates connection handles. Nil gives the endpoint its own.
	Handles *presence.Handles
}

// DefaultConfig returns the endpoint defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:       256,
		MaxTextLength:    2000,
		InvokeRate:       5,
		InvokeBurst:      10,
		OperationTimeout: 5 * time.Second,
		SampleInterval:   15 * time.Second,
	}
}

// Endpoint owns the connections of one kind and translates their
// lifecycle and invocations into registry updates and router calls.
type Endpoint struct {
	kind      Kind
	cfg       Config
	registry  *presence.Registry
	router    *chat.Router
	counter   *presence.Counter
	publisher chat.Publisher
	fanout    chat.Fanout
}

// NewChatEndpoint serves sendAll through router, whose audience is the
// endpoint's registry.
func NewChatEndpoint(router *chat.Router, cfg Config) *Endpoint {
	return newEndpoint(KindChat, router.Audience(), cfg, func(e *Endpoint) { e.router = router })
}

// NewPrivateChatEndpoint serves sendPrivate through router.
func NewPrivateChatEndpoint(router *chat.Router, cfg Config) *Endpoint {
	return newEndpoint(KindPrivateChat, router.Audience(), cfg, func(e *Endpoint) { e.router = router })
}

// NewPresenceEndpoint serves pageViewed and maintains counter. counter is
// expected to broadcast to reg.
func NewPresenceEndpoint(reg *presence.Registry, counter *presence.Counter, publisher chat.Publisher, cfg Config) *Endpoint {
	return newEndpoint(KindPresence, reg, cfg, func(e *Endpoint) {
		e.counter = counter
		e.publisher = publisher
	})
}

func newEndpoint(kind Kind, reg *presence.Registry, cfg Config, init func(*Endpoint)) *Endpoint {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}
	if cfg.Handles == nil {
		cfg.Handles = presence.NewHandles()
	}
	e := &Endpoint{
		kind:     kind,
		cfg:      cfg,
		registry: reg,
		fanout:   chat.Fanout{Endpoint: kind.String()},
	}
	init(e)
	return e
}

// Kind returns the endpoint kind.
func (e *Endpoint) Kind() Kind { return e.kind }

// Registry returns the endpoint's registry.
func (e *Endpoint) Registry() *presence.Registry { return e.registry }

// Counter returns the presence counter, nil on chat endpoints.
func (e *Endpoint) Counter() *presence.Counter { return e.counter }

// Connect opens a connection for profile and makes it Active.
func (e *Endpoint) Connect(profile models.Profile) (*Conn, error) {
	if profile.UserID == "" {
		return nil, fmt.Errorf("connect %s: empty user identity", e.kind)
	}
	c := newConn(e, profile)
	if err := c.activate(); err != nil {
		return nil, err
	}
	e.join(c)
	return c, nil
}

func (e *Endpoint) join(c *Conn) {
	e.registry.Register(c.User(), c)
	logging.Ctx(c.ctx).Debug().Msg("connection registered")

	if e.kind != KindPresence {
		return
	}

	n := e.counter.OnConnect()
	metrics.PresenceConnected.Set(float64(n))

	display := c.profile.DisplayName
	if display == "" {
		display = c.profile.Username
	}
	ev := models.NewEvent(models.EventUserConnected, models.UserConnectedPayload{
		UserID:      c.User(),
		DisplayName: display,
	})
	var others []presence.Session
	for _, s := range e.registry.Sessions() {
		if s.User() != c.User() {
			others = append(others, s)
		}
	}
	e.fanout.Deliver(others, ev)

	if e.publisher != nil {
		if err := e.publisher.Publish(c.ctx, TopicPresenceConnected, ev.Data); err != nil {
			logging.Ctx(c.ctx).Warn().Err(err).Msg("failed to publish presence event")
		}
	}
}

func (e *Endpoint) leave(c *Conn) {
	if !e.registry.Deregister(c.User(), c.Handle()) {
		return
	}
	logging.Ctx(c.ctx).Debug().Msg("connection deregistered")

	if e.kind == KindPresence {
		n := e.counter.OnDisconnect()
		metrics.PresenceConnected.Set(float64(n))
	}
}

// Serve samples registry gauges until ctx is cancelled, then closes every
// connection. It satisfies suture.Service together with String.
func (e *Endpoint) Serve(ctx context.Context) error {
	interval := e.cfg.SampleInterval
	if interval <= 0 {
		interval = DefaultConfig().SampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.sample()
	for {
		select {
		case <-ctx.Done():
			n := e.CloseAll()
			logging.Info().Str("endpoint", e.kind.String()).Int("closed", n).Msg("endpoint stopped")
			return ctx.Err()
		case <-ticker.C:
			e.sample()
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (e *Endpoint) String() string { return "hub-" + e.kind.String() }

func (e *Endpoint) sample() {
	metrics.SetEndpointGauges(e.kind.String(), e.registry.ConnectionCount(), e.registry.UserCount())
}

// CloseAll closes every registered connection and returns how many.
func (e *Endpoint) CloseAll() int {
	sessions := e.registry.Sessions()
	for _, s := range sessions {
		if c, ok := s.(*Conn); ok {
			c.Close()
		}
	}
	e.sample()
	return len(sessions)
}
