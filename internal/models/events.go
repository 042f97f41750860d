// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package models

import "time"

// Outbound push event names.
const (
	EventMessageReceived        = "messageReceived"
	EventPrivateMessageReceived = "privateMessageReceived"
	EventUserConnected          = "userConnected"
	EventTotalUsersUpdated      = "totalUsersUpdated"
	EventTotalViewsUpdated      = "totalViewsUpdated"
	EventInvokeError            = "invokeError"
	EventPong                   = "pong"
)

// Inbound frame types and invokable methods.
const (
	FrameInvoke = "invoke"
	FramePing   = "ping"

	MethodSendAll     = "sendAll"
	MethodSendPrivate = "sendPrivate"
	MethodPageViewed  = "pageViewed"
)

// Event is a frame pushed to a connection.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an outbound event.
func NewEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// ChatPayload is the body of messageReceived and privateMessageReceived.
type ChatPayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	AvatarURL   string `json:"avatarUrl"`
	Sender      UserID `json:"sender"`
}

// UserConnectedPayload is the body of userConnected.
type UserConnectedPayload struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

// CountPayload is the body of totalUsersUpdated and totalViewsUpdated.
type CountPayload struct {
	Count int64 `json:"count"`
}

// InvokeErrorPayload reports a rejected invocation to its caller.
type InvokeErrorPayload struct {
	Method  string `json:"method"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Frame is a client-to-server message.
type Frame struct {
	Type   string           `json:"type"`
	Method string           `json:"method,omitempty"`
	Args   *InvokeArguments `json:"args,omitempty"`
}

// InvokeArguments carries the arguments of every invokable method. Fields
// unused by a method are ignored.
type InvokeArguments struct {
	Receiver string `json:"receiver,omitempty"`
	Text     string `json:"text,omitempty"`
}
