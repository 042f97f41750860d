// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package services

import (
	"context"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
)

// Pinger is a store health check.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// StoreMonitor pings the store on an interval and exports the result.
type StoreMonitor struct {
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	healthy  bool
	checked  bool
}

// NewStoreMonitor creates a monitor. Non-positive durations take defaults
// of 30s and 5s.
func NewStoreMonitor(store Pinger, interval, timeout time.Duration) *StoreMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreMonitor{store: store, interval: interval, timeout: timeout}
}

// Serve implements suture.Service.
func (m *StoreMonitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *StoreMonitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.store.Ping(pingCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	healthy := err == nil
	metrics.SetStoreUp(m.store.Name(), healthy)

	if m.checked && healthy == m.healthy {
		return
	}
	m.checked, m.healthy = true, healthy
	if healthy {
		logging.Info().Str("backend", m.store.Name()).Msg("store healthy")
	} else {
		logging.Warn().Err(err).Str("backend", m.store.Name()).Msg("store health check failed")
	}
}

// String implements fmt.Stringer for supervisor logs.
func (m *StoreMonitor) String() string {
	return "store-monitor"
}
