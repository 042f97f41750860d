// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
)

// Config sizes a Cache.
type Config struct {
	// Name labels the cache in metrics.
	Name string
	// Capacity is the maximum number of entries.
	Capacity int64
	// TTL is how long an entry stays valid. Zero means no expiry.
	TTL time.Duration
}

// Cache is a concurrency-safe bounded cache with per-entry TTL.
type Cache[K ristretto.Key, V any] struct {
	name  string
	ttl   time.Duration
	inner *ristretto.Cache[K, V]
}

// New builds a cache. Every entry has cost 1, so Capacity is an entry count.
func New[K ristretto.Key, V any](cfg Config) (*Cache[K, V], error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10000
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	// IgnoreInternalCost keeps ristretto from adding its per-item overhead,
	// so MaxCost is an entry count.
	inner, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters:        cfg.Capacity * 10,
		MaxCost:            cfg.Capacity,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s cache: %w", cfg.Name, err)
	}
	return &Cache[K, V]{name: cfg.Name, ttl: cfg.TTL, inner: inner}, nil
}

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	metrics.RecordCacheLookup(c.name, ok)
	return v, ok
}

// Set stores value under key. It reports false when the write was dropped.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.inner.SetWithTTL(key, value, 1, c.ttl)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.inner.Del(key)
}

// Wait blocks until pending writes are applied.
func (c *Cache[K, V]) Wait() {
	c.inner.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache[K, V]) Close() {
	c.inner.Close()
}
