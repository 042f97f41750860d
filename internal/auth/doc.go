// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package auth establishes connection identity from HS256 JWTs.

Tokens are read from the Authorization header ("Bearer <token>") or, for
websocket upgrades where browsers cannot set headers, from a query
parameter (access_token by default). The subject claim is the user id; the
username, displayName and avatarUrl claims populate the user directory when
a connection opens.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, cfg.Security.TokenQueryParam)
	r.With(mw.Authenticate).Get("/api/v1/messages/private", handler)

	claims, ok := auth.ClaimsFromContext(r.Context())
*/
package auth
