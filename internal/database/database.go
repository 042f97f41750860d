// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package database is the DuckDB persistence adapter. It stores broadcast
// and private messages and serves the user directory.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver

	"github.com/B12048/TibaMe-repo-sub002/internal/config"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
)

// DB is a DuckDB-backed store.Store.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database at cfg.Path (":memory:" for a throwaway database)
// and creates the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	params := []string{
		"access_mode=read_write",
		fmt.Sprintf("threads=%d", threads),
		"autoinstall_known_extensions=false",
		"autoload_known_extensions=false",
	}
	if cfg.MaxMemory != "" {
		params = append(params, "max_memory="+cfg.MaxMemory)
	}
	connStr := cfg.Path + "?" + strings.Join(params, "&")

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	if err := db.createTables(context.Background()); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Msg("DuckDB message store ready")
	return db, nil
}

// Name implements store.Store.
func (db *DB) Name() string { return "duckdb" }

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB { return db.conn }

// Ping implements store.Store.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints and closes the database.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.cfg.Path != ":memory:" {
		if _, err := db.conn.Exec("CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
	}
	return db.conn.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id      VARCHAR PRIMARY KEY,
		username     VARCHAR NOT NULL,
		username_key VARCHAR NOT NULL,
		display_name VARCHAR NOT NULL,
		avatar_url   VARCHAR NOT NULL DEFAULT '',
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS broadcast_messages (
		id           VARCHAR PRIMARY KEY,
		sender_id    VARCHAR NOT NULL,
		display_name VARCHAR NOT NULL,
		avatar_url   VARCHAR NOT NULL DEFAULT '',
		text         VARCHAR NOT NULL,
		sent_at      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS private_messages (
		id          VARCHAR PRIMARY KEY,
		sender_id   VARCHAR NOT NULL,
		receiver_id VARCHAR NOT NULL,
		text        VARCHAR NOT NULL,
		sent_at     TIMESTAMP NOT NULL
	)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}
