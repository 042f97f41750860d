// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/auth"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
	"github.com/B12048/TibaMe-repo-sub002/internal/validation"
)

type historyRequest struct {
	Limit int    `json:"limit" validate:"gte=0,lte=500"`
	With  string `json:"with" validate:"omitempty,max=64"`
}

// parseHistoryRequest reads limit and with. ok is false when a response
// has already been written.
func parseHistoryRequest(w http.ResponseWriter, r *http.Request) (historyRequest, bool) {
	q := r.URL.Query()
	req := historyRequest{With: q.Get("with")}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be an integer", nil)
			return req, false
		}
		req.Limit = n
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErrorWithDetails(w, http.StatusBadRequest, verr.Code(), verr.Error(), verr.Details(), nil)
		return req, false
	}
	return req, true
}

// Health reports liveness, store status and connection totals.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	storeHealthy := h.store != nil && h.store.Ping(ctx) == nil
	eventsEnabled := h.eventsHealthy != nil

	status := "healthy"
	if !storeHealthy || (eventsEnabled && !h.eventsHealthy()) {
		status = "degraded"
	}

	storeName := ""
	if h.store != nil {
		storeName = h.store.Name()
	}

	respondSuccess(w, models.HealthStatus{
		Status:        status,
		Version:       Version,
		Store:         storeName,
		StoreHealthy:  storeHealthy,
		Connections:   h.connectionCount(),
		Uptime:        time.Since(h.startTime).Seconds(),
		EventsEnabled: eventsEnabled,
	}, 0, start)
}

// Presence returns online users and the presence counters.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.presence == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Presence unavailable", nil)
		return
	}
	snap := h.presence.Counter().Snapshot()
	online := h.presence.Registry().OnlineUsers()
	if online == nil {
		online = []models.UserID{}
	}
	respondSuccess(w, models.PresenceSnapshot{
		OnlineUsers:    online,
		TotalConnected: snap.TotalConnected,
		TotalViews:     snap.TotalViews,
	}, len(online), start)
}

// BroadcastHistory returns the most recent broadcasts, oldest first.
func (h *Handler) BroadcastHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := parseHistoryRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()
	msgs, err := h.store.RecentBroadcasts(ctx, store.ClampLimit(req.Limit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load messages", err)
		return
	}
	if msgs == nil {
		msgs = []models.BroadcastMessage{}
	}
	respondSuccess(w, msgs, len(msgs), start)
}

// PrivateHistory returns the caller's conversation with ?with=, matched by
// username or user id.
func (h *Handler) PrivateHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}
	req, ok := parseHistoryRequest(w, r)
	if !ok {
		return
	}
	if req.With == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "with is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opTimeout)
	defer cancel()

	other, err := h.resolveUser(ctx, req.With)
	if errors.Is(err, store.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "User not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to resolve user", err)
		return
	}

	msgs, err := h.store.PrivateConversation(ctx, claims.UserID(), other, store.ClampLimit(req.Limit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeDatabaseError, "Failed to load messages", err)
		return
	}
	if msgs == nil {
		msgs = []models.PrivateMessage{}
	}
	respondSuccess(w, msgs, len(msgs), start)
}

func (h *Handler) resolveUser(ctx context.Context, ref string) (models.UserID, error) {
	id, err := h.store.LookupByName(ctx, ref)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return "", err
	}
	p, err := h.store.LookupProfile(ctx, models.UserID(ref))
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}
