// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// Key prefixes. Message keys embed a zero-padded nanosecond timestamp so
// lexical order is chronological order.
const (
	userKeyPrefix      = "user:"
	usernameKeyPrefix  = "username:"
	broadcastKeyPrefix = "bcast:"
	privateKeyPrefix   = "pm:"
)

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	Path     string
	InMemory bool
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Name implements Store.
func (s *BadgerStore) Name() string { return "badger" }

func timeKey(prefix string, nanos int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefix, nanos, id))
}

// conversationPrefix hex-encodes both ids so no id can extend another
// conversation's prefix.
func conversationPrefix(a, b models.UserID) string {
	if b < a {
		a, b = b, a
	}
	return privateKeyPrefix + hex.EncodeToString([]byte(a)) + ":" + hex.EncodeToString([]byte(b)) + ":"
}

// SaveBroadcastMessage implements MessageStore.
func (s *BadgerStore) SaveBroadcastMessage(_ context.Context, msg *models.BroadcastMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal broadcast message: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(timeKey(broadcastKeyPrefix, msg.SentAt.UnixNano(), msg.ID), data)
	})
}

// SavePrivateMessage implements MessageStore.
func (s *BadgerStore) SavePrivateMessage(_ context.Context, msg *models.PrivateMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal private message: %w", err)
	}
	key := timeKey(conversationPrefix(msg.SenderID, msg.ReceiverID), msg.SentAt.UnixNano(), msg.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// UpsertUser implements Store.
func (s *BadgerStore) UpsertUser(_ context.Context, p models.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		userKey := []byte(userKeyPrefix + string(p.UserID))

		item, err := txn.Get(userKey)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return fmt.Errorf("get profile: %w", err)
		default:
			var old models.Profile
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return fmt.Errorf("decode profile: %w", err)
			}
			if old.Username != "" && NormalizeName(old.Username) != NormalizeName(p.Username) {
				if err := deleteNameIfOwned(txn, NormalizeName(old.Username), p.UserID); err != nil {
					return err
				}
			}
		}

		if err := txn.Set(userKey, data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		if p.Username != "" {
			if err := txn.Set([]byte(usernameKeyPrefix+NormalizeName(p.Username)), []byte(p.UserID)); err != nil {
				return fmt.Errorf("set username index: %w", err)
			}
		}
		return nil
	})
}

// deleteNameIfOwned releases the username index entry when it still points
// at id. Another user holding the same folded name takes it over.
func deleteNameIfOwned(txn *badger.Txn, name string, id models.UserID) error {
	key := []byte(usernameKeyPrefix + name)
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get username index: %w", err)
	}
	owner, err := item.ValueCopy(nil)
	if err != nil {
		return fmt.Errorf("read username index: %w", err)
	}
	if models.UserID(owner) != id {
		return nil
	}

	heir, err := findUserByName(txn, name, id)
	if err != nil {
		return err
	}
	if heir != "" {
		if err := txn.Set(key, []byte(heir)); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}
		return nil
	}
	if err := txn.Delete(key); err != nil {
		return fmt.Errorf("delete username index: %w", err)
	}
	return nil
}

// findUserByName scans profiles for a user other than except whose name
// folds to name.
func findUserByName(txn *badger.Txn, name string, except models.UserID) (models.UserID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(userKeyPrefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var p models.Profile
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &p) }); err != nil {
			return "", fmt.Errorf("decode profile: %w", err)
		}
		if p.UserID != except && p.Username != "" && NormalizeName(p.Username) == name {
			return p.UserID, nil
		}
	}
	return "", nil
}

// LookupByName implements UserDirectory.
func (s *BadgerStore) LookupByName(_ context.Context, name string) (models.UserID, error) {
	var id models.UserID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(usernameKeyPrefix + NormalizeName(name)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get username: %w", err)
		}
		return item.Value(func(val []byte) error {
			id = models.UserID(val)
			return nil
		})
	})
	return id, err
}

// LookupProfile implements UserDirectory.
func (s *BadgerStore) LookupProfile(_ context.Context, id models.UserID) (models.Profile, error) {
	var p models.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + string(id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	return p, err
}

// RecentBroadcasts implements History.
func (s *BadgerStore) RecentBroadcasts(_ context.Context, limit int) ([]models.BroadcastMessage, error) {
	var out []models.BroadcastMessage
	err := s.scanNewest([]byte(broadcastKeyPrefix), ClampLimit(limit), func(val []byte) (bool, error) {
		var m models.BroadcastMessage
		if err := json.Unmarshal(val, &m); err != nil {
			return false, err
		}
		out = append(out, m)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan broadcasts: %w", err)
	}
	reverse(out)
	return out, nil
}

// PrivateConversation implements History.
func (s *BadgerStore) PrivateConversation(_ context.Context, a, b models.UserID, limit int) ([]models.PrivateMessage, error) {
	var out []models.PrivateMessage
	err := s.scanNewest([]byte(conversationPrefix(a, b)), ClampLimit(limit), func(val []byte) (bool, error) {
		var m models.PrivateMessage
		if err := json.Unmarshal(val, &m); err != nil {
			return false, err
		}
		if !SameConversation(&m, a, b) {
			return false, nil
		}
		out = append(out, m)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	reverse(out)
	return out, nil
}

// scanNewest visits values under prefix, newest key first, until fn has
// kept limit of them.
func (s *BadgerStore) scanNewest(prefix []byte, limit int, fn func(val []byte) (bool, error)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		n := 0
		for it.Seek(seek); it.ValidForPrefix(prefix) && n < limit; it.Next() {
			var kept bool
			if err := it.Item().Value(func(val []byte) error {
				var err error
				kept, err = fn(val)
				return err
			}); err != nil {
				return err
			}
			if kept {
				n++
			}
		}
		return nil
	})
}

// Ping implements Store.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
