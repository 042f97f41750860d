// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package hub implements the Chat, PrivateChat and Presence endpoints.

Each accepted connection becomes a Conn with an explicit lifecycle:

	Connecting --Connect--> Active --Close--> Closed

Becoming Active registers the connection in the endpoint's registry. On the
Presence endpoint it also increments the presence counter (announced to
every presence connection as totalUsersUpdated) and announces userConnected
to the other online users. Closing deregisters and, on Presence, decrements
and announces the counter.

While Active a connection may invoke its endpoint's method any number of
times:

	chat      sendAll {text}
	private   sendPrivate {receiver, text}
	presence  pageViewed

Invocations on a Closed connection fail with ErrConnectionClosed. Pushes to
a Closed connection fail with ErrStaleHandle and callers drop them.

Rejected invocations are answered with an invokeError event carrying one of
the Code* constants.

An Endpoint is also a suture.Service: Serve samples registry gauges and
closes every connection when its context ends.
*/
package hub
