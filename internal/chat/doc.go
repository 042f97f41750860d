// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package chat routes messages from one sender to live connections.

Every send has two phases. The message is first written to the
MessageStore; only when that write returns nil is it pushed to the
recipients' sessions through a Fanout. No registry lock is held while the
store or directory is called.

Broadcast delivers messageReceived to every session in the router's
audience registry, one push per connection. SendPrivate resolves the
receiver by name (case-insensitively, falling back to an exact user ID),
stores the message and pushes privateMessageReceived to every session of
the receiver and of the sender. An offline receiver is not an error: the
message is stored and can be read back through the history API.

Errors:

	ErrRecipientNotFound  receiver could not be resolved; nothing stored
	*PersistenceError     store write failed; nothing delivered

Pushes to closed sessions are dropped and counted, never returned.
*/
package chat
