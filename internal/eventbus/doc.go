// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package eventbus publishes message and presence events to a watermill
backend for downstream consumers.

Publishing is best effort and is never a delivery path: a failed publish is
counted and logged by the caller, and connected clients are unaffected.

Backends:

  - gochannel: in-process pub/sub, used in development and tests
  - nats: watermill-nats publisher, optionally JetStream, optionally against
    an embedded nats-server started by NewEmbeddedServer

Topics are prefixed with the configured topic prefix, so chat.broadcast is
published as lobby.chat.broadcast. Each message carries a uuid, the topic and
the caller's correlation id as metadata. On NATS the uuid is also the
Nats-Msg-Id header for JetStream deduplication.
*/
package eventbus
