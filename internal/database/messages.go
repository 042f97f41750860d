// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package database

import (
	"context"
	"fmt"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
)

// SaveBroadcastMessage implements store.MessageStore.
func (db *DB) SaveBroadcastMessage(ctx context.Context, msg *models.BroadcastMessage) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO broadcast_messages (id, sender_id, display_name, avatar_url, text, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, string(msg.SenderID), msg.DisplayName, msg.AvatarURL, msg.Text, msg.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("insert broadcast message: %w", err)
	}
	return nil
}

// SavePrivateMessage implements store.MessageStore.
func (db *DB) SavePrivateMessage(ctx context.Context, msg *models.PrivateMessage) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO private_messages (id, sender_id, receiver_id, text, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, string(msg.SenderID), string(msg.ReceiverID), msg.Text, msg.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("insert private message: %w", err)
	}
	return nil
}

// RecentBroadcasts implements store.History.
func (db *DB) RecentBroadcasts(ctx context.Context, limit int) ([]models.BroadcastMessage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, sender_id, display_name, avatar_url, text, sent_at FROM (
			SELECT * FROM broadcast_messages ORDER BY sent_at DESC, id DESC LIMIT ?
		 ) ORDER BY sent_at, id`,
		store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query broadcasts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.BroadcastMessage
	for rows.Next() {
		var m models.BroadcastMessage
		var sender string
		if err := rows.Scan(&m.ID, &sender, &m.DisplayName, &m.AvatarURL, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan broadcast: %w", err)
		}
		m.SenderID = models.UserID(sender)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broadcasts: %w", err)
	}
	return out, nil
}

// PrivateConversation implements store.History.
func (db *DB) PrivateConversation(ctx context.Context, a, b models.UserID, limit int) ([]models.PrivateMessage, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, text, sent_at FROM (
			SELECT * FROM private_messages
			WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
			ORDER BY sent_at DESC, id DESC LIMIT ?
		 ) ORDER BY sent_at, id`,
		string(a), string(b), string(b), string(a), store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.PrivateMessage
	for rows.Next() {
		var m models.PrivateMessage
		var sender, receiver string
		if err := rows.Scan(&m.ID, &sender, &receiver, &m.Text, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan private message: %w", err)
		}
		m.SenderID, m.ReceiverID = models.UserID(sender), models.UserID(receiver)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	return out, nil
}
