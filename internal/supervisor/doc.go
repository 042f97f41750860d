// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package supervisor arranges the server's long-running services in a suture
tree so a failing service is restarted without taking down the others.

	lobby (root)
	├── data-layer       store monitor
	├── messaging-layer  hub endpoints (chat, private, presence)
	└── api-layer        HTTP server

Stopping the root context stops every layer. The hub endpoints close all of
their connections when stopped; the HTTP server drains within its shutdown
timeout. Supervisor events are logged through sutureslog.
*/
package supervisor
