// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

/*
Package websocket carries hub connections over gorilla/websocket.

A Client pairs one upgraded *websocket.Conn with one *hub.Conn and runs two
goroutines:

  - readPump: decodes JSON frames and hands them to hub.Conn.HandleFrame
  - writePump: drains hub.Conn.Send, writes JSON text messages and pings

Either pump exiting closes both sides, so the hub sees exactly one Close
per transport connection.

Frames sent by clients:

	{"type":"invoke","method":"sendAll","args":{"text":"hi"}}
	{"type":"invoke","method":"sendPrivate","args":{"receiver":"bob","text":"hi"}}
	{"type":"invoke","method":"pageViewed"}
	{"type":"ping"}

Events pushed to clients:

	{"type":"messageReceived","data":{...},"timestamp":"..."}

Usage:

	conn, err := endpoint.Connect(profile)
	if err != nil {
	    return err
	}
	websocket.NewClient(ws, conn, websocket.DefaultConfig()).Start()
*/
package websocket
