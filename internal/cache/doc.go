// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package cache provides a bounded TTL cache on top of ristretto with
// Prometheus hit and miss accounting.
//
// Writes are asynchronous: a value stored with Set may not be visible to
// Get until the internal buffers drain. Call Wait when a caller needs
// read-your-writes.
package cache
