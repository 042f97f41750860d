// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
)

// UpsertUser implements store.Store.
func (db *DB) UpsertUser(ctx context.Context, p models.Profile) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (user_id, username, username_key, display_name, avatar_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			username = excluded.username,
			username_key = excluded.username_key,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		string(p.UserID), p.Username, store.NormalizeName(p.Username), p.DisplayName, p.AvatarURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// LookupByName implements store.UserDirectory. When two accounts share a
// folded name the most recently updated one wins.
func (db *DB) LookupByName(ctx context.Context, name string) (models.UserID, error) {
	var id string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM users WHERE username_key = ? ORDER BY updated_at DESC LIMIT 1`,
		store.NormalizeName(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user by name: %w", err)
	}
	return models.UserID(id), nil
}

// LookupProfile implements store.UserDirectory.
func (db *DB) LookupProfile(ctx context.Context, id models.UserID) (models.Profile, error) {
	p := models.Profile{UserID: id}
	err := db.conn.QueryRowContext(ctx,
		`SELECT username, display_name, avatar_url FROM users WHERE user_id = ?`,
		string(id)).Scan(&p.Username, &p.DisplayName, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, store.ErrUserNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("lookup profile: %w", err)
	}
	return p, nil
}
