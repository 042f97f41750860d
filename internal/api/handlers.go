// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package api

import (
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/auth"
	"github.com/B12048/TibaMe-repo-sub002/internal/hub"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
	ws "github.com/B12048/TibaMe-repo-sub002/internal/websocket"
)

// Version is reported by the health endpoint.
var Version = "dev"

// HandlerConfig carries the Handler's collaborators.
type HandlerConfig struct {
	Store    store.Store
	Chat     *hub.Endpoint
	Private  *hub.Endpoint
	Presence *hub.Endpoint
	Auth     *auth.Middleware

	// AllowedOrigins are checked on websocket upgrades. "*" allows any.
	AllowedOrigins []string
	Transport      ws.Config

	// OperationTimeout bounds store calls made by handlers.
	OperationTimeout time.Duration

	// EventsHealthy reports the event stream state; nil means disabled.
	EventsHealthy func() bool
}

// Handler serves the HTTP routes.
type Handler struct {
	store     store.Store
	endpoints map[hub.Kind]*hub.Endpoint
	presence  *hub.Endpoint
	auth      *auth.Middleware

	allowedOrigins []string
	transport      ws.Config
	opTimeout      time.Duration
	eventsHealthy  func() bool
	startTime      time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	endpoints := make(map[hub.Kind]*hub.Endpoint, 3)
	for _, e := range []*hub.Endpoint{cfg.Chat, cfg.Private, cfg.Presence} {
		if e != nil {
			endpoints[e.Kind()] = e
		}
	}
	timeout := cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		store:          cfg.Store,
		endpoints:      endpoints,
		presence:       cfg.Presence,
		auth:           cfg.Auth,
		allowedOrigins: cfg.AllowedOrigins,
		transport:      cfg.Transport,
		opTimeout:      timeout,
		eventsHealthy:  cfg.EventsHealthy,
		startTime:      time.Now(),
	}
}

// connectionCount sums connections across endpoints.
func (h *Handler) connectionCount() int {
	n := 0
	for _, e := range h.endpoints {
		n += e.Registry().ConnectionCount()
	}
	return n
}
