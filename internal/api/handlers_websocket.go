// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/B12048/TibaMe-repo-sub002/internal/hub"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	ws "github.com/B12048/TibaMe-repo-sub002/internal/websocket"
)

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates websocket connection origins. A missing
// Origin is rejected unless any origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// ChatWebSocket upgrades to the chat endpoint.
func (h *Handler) ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	h.serveWebSocket(w, r, hub.KindChat)
}

// PrivateWebSocket upgrades to the private chat endpoint.
func (h *Handler) PrivateWebSocket(w http.ResponseWriter, r *http.Request) {
	h.serveWebSocket(w, r, hub.KindPrivateChat)
}

// PresenceWebSocket upgrades to the presence endpoint.
func (h *Handler) PresenceWebSocket(w http.ResponseWriter, r *http.Request) {
	h.serveWebSocket(w, r, hub.KindPresence)
}

func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request, kind hub.Kind) {
	endpoint, ok := h.endpoints[kind]
	if !ok {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	claims, err := h.auth.Identify(r)
	if err != nil {
		metrics.WSErrors.WithLabelValues("unauthorized").Inc()
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized: valid token required", nil)
		return
	}
	if !h.checkWebSocketOrigin(r) {
		metrics.WSErrors.WithLabelValues("origin").Inc()
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Origin not allowed", nil)
		return
	}
	profile := claims.Profile()

	// Directory failures leave the user unresolvable by name but do not
	// block the connection.
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	if err := h.store.UpsertUser(ctx, profile); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("user", profile.UserID.String()).Msg("failed to record user profile")
	}
	cancel()

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSErrors.WithLabelValues("upgrade").Inc()
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	hc, err := endpoint.Connect(profile)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to open hub connection")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""))
		_ = conn.Close()
		return
	}

	ws.NewClient(conn, hc, h.transport).Start()
}
