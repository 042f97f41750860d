// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package services adapts server components to suture.Service.
//
// Every service returns ctx.Err() on a clean stop so suture does not
// restart it, and a wrapped error on failure so it does.
package services
