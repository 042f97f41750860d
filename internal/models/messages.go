// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package models

import "time"

// UserID is the stable identity the authenticator assigns to a person.
type UserID string

// String implements fmt.Stringer.
func (u UserID) String() string { return string(u) }

// Profile holds the display fields shown next to a message.
type Profile struct {
	UserID      UserID `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// AnonymousProfile is used when a sender's profile cannot be resolved.
func AnonymousProfile(id UserID) Profile {
	return Profile{UserID: id, Username: string(id), DisplayName: "Anonymous"}
}

// BroadcastMessage is a message delivered to every live connection.
type BroadcastMessage struct {
	ID          string    `json:"id"`
	SenderID    UserID    `json:"sender_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

// PrivateMessage is a message addressed to one user.
type PrivateMessage struct {
	ID         string    `json:"id"`
	SenderID   UserID    `json:"sender_id"`
	ReceiverID UserID    `json:"receiver_id"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}
