// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package presence tracks who is online.

A Registry maps each user to the set of live sessions (one per open
connection) that user currently holds. A user is present exactly when that
set is non-empty; removing the last session removes the user in the same
critical section, so readers never observe an empty entry.

A Counter keeps the total number of connected sessions and the cumulative
page-view count. Every mutation is applied atomically and then handed to a
BroadcastFunc, which is expected to enqueue and return.

Both types are constructed by the caller and shared by pointer:

	reg := presence.NewRegistry()
	counter := presence.NewCounter(func(ev models.Event) {
		for _, s := range reg.Sessions() {
			_ = s.Push(ev)
		}
	})

There is no package-level presence state other than the handle sequence.
*/
package presence
