// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package main is the entry point for the Lobby server.

Lobby serves three websocket endpoints backed by one process:

	/ws/chat       broadcast chat (sendAll)
	/ws/private    private messages (sendPrivate)
	/ws/presence   connection counting and page views (pageViewed)

and a small REST surface under /api/v1 for health, the presence snapshot
and message history.

# Application Architecture

	RootSupervisor ("lobby")
	├── DataSupervisor ("data-layer")
	│   └── store-monitor
	├── MessagingSupervisor ("messaging-layer")
	│   ├── hub-chat
	│   ├── hub-private
	│   └── hub-presence
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Store: DuckDB, BadgerDB or memory, optionally behind a circuit breaker
 4. Event stream: Watermill over gochannel or NATS (optional)
 5. Registries, presence counter and message routers
 6. Authentication: JWT bearer tokens
 7. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=8080               # HTTP server port
	JWT_SECRET=<32+ chars>       # Required
	STORAGE_BACKEND=duckdb       # duckdb, badger or memory
	DUCKDB_PATH=/data/lobby.duckdb
	EVENTS_ENABLED=false
	EVENTS_BACKEND=gochannel     # gochannel or nats
	NATS_EMBEDDED=false
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

On SIGINT or SIGTERM the tree is cancelled: the HTTP server drains, every
websocket connection is closed with a normal close frame, the event stream
is flushed and the store is closed.
*/
package main
