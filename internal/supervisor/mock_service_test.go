// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// MockService counts starts and can fail its first runs.
type MockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
	maxFails   atomic.Int32
}

func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

func (m *MockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	if max := m.maxFails.Load(); max > 0 && m.failCount.Add(1) <= max {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockService) SetFailCount(n int32) { m.maxFails.Store(n) }

func (m *MockService) StartCount() int32 { return m.startCount.Load() }

func (m *MockService) String() string { return m.name }
