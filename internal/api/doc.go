// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package api is the HTTP surface: websocket upgrades for the three hub
endpoints plus a small REST API.

Routes:

	GET /ws/chat                    chat endpoint (sendAll)
	GET /ws/private                 private chat endpoint (sendPrivate)
	GET /ws/presence                presence endpoint (pageViewed)
	GET /api/v1/health              liveness and store status
	GET /api/v1/presence            online users and counters
	GET /api/v1/messages/broadcast  recent broadcasts       (auth)
	GET /api/v1/messages/private    conversation with ?with= (auth)
	GET /metrics                    Prometheus

Websocket upgrades require a JWT (Authorization header or the configured
query parameter) and an allowed Origin. The token's profile is upserted into
the user directory before the connection becomes Active, so other users can
address it by name.

REST responses use the models.APIResponse envelope; errors carry a code
string such as VALIDATION_ERROR or NOT_FOUND.
*/
package api
