// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims in a request context.
const ClaimsContextKey contextKey = "claims"

// DefaultTokenQueryParam is used when no query parameter name is configured.
const DefaultTokenQueryParam = "access_token"

var (
	// ErrMissingToken is returned when a request carries no token.
	ErrMissingToken = errors.New("unauthorized: missing token")

	// ErrInvalidAuthHeader is returned for a non-Bearer Authorization header.
	ErrInvalidAuthHeader = errors.New("unauthorized: invalid authorization header")
)

// Middleware authenticates requests with JWTs.
type Middleware struct {
	jwtManager *JWTManager
	queryParam string
}

// NewMiddleware creates the middleware. queryParam names the URL parameter
// accepted in place of the Authorization header.
func NewMiddleware(jwtManager *JWTManager, queryParam string) *Middleware {
	if queryParam == "" {
		queryParam = DefaultTokenQueryParam
	}
	return &Middleware{jwtManager: jwtManager, queryParam: queryParam}
}

// Authenticate rejects requests without a valid token and stores the
// claims in the request context otherwise.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Identify(r)
		if err != nil {
			logging.Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeUnauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// Identify extracts and validates the request's token.
func (m *Middleware) Identify(r *http.Request) (*Claims, error) {
	token, err := m.extractJWTToken(r)
	if err != nil {
		return nil, err
	}
	return m.jwtManager.ValidateToken(token)
}

// extractJWTToken reads the Authorization header, then the query parameter.
func (m *Middleware) extractJWTToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", ErrInvalidAuthHeader
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if token := r.URL.Query().Get(m.queryParam); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	message := "Unauthorized: invalid token"
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidAuthHeader) {
		message = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="lobby"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{Code: "UNAUTHORIZED", Message: message},
	})
}
