// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package main

import (
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/B12048/TibaMe-repo-sub002/internal/config"
	"github.com/B12048/TibaMe-repo-sub002/internal/database"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
)

// openStore builds the configured backend, wrapped in a circuit breaker
// and a profile cache when enabled. The cache sits outside the breaker so
// hits never count against it.
func openStore(cfg *config.Config) (store.Store, error) {
	st, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.BreakerEnabled {
		st = withBreaker(st, cfg.Storage)
	}
	if cfg.Storage.ProfileCacheSize <= 0 {
		return st, nil
	}
	cached, err := store.NewCachedStore(st, cfg.Storage.ProfileCacheSize, cfg.Storage.ProfileCacheTTL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return cached, nil
}

func openBackend(cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Storage.Backend {
	case config.StorageDuckDB:
		st, err = database.New(&cfg.Database)
	case config.StorageBadger:
		st, err = store.OpenBadger(store.BadgerOptions{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
		})
	case config.StorageMemory:
		logging.Warn().Msg("Memory store selected: messages and users are lost on restart")
		st = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	return st, nil
}

func withBreaker(st store.Store, sc config.StorageConfig) store.Store {
	bc := store.DefaultBreakerConfig()
	bc.Name = "store-" + st.Name()
	if sc.BreakerThreshold > 0 {
		bc.FailureThreshold = sc.BreakerThreshold
	}
	if sc.BreakerTimeout > 0 {
		bc.Timeout = sc.BreakerTimeout
	}
	if sc.BreakerInterval > 0 {
		bc.Interval = sc.BreakerInterval
	}
	if sc.BreakerHalfOpenRq > 0 {
		bc.MaxRequests = sc.BreakerHalfOpenRq
	}
	bc.OnStateChange = func(name string, _, to gobreaker.State) {
		metrics.SetBreakerState(name, to.String())
	}
	metrics.SetBreakerState(bc.Name, gobreaker.StateClosed.String())
	return store.NewBreakerStore(st, bc)
}
