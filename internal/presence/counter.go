// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package presence

import (
	"sync/atomic"

	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// BroadcastFunc delivers ev to every interested connection. It must not
// block on any single connection.
type BroadcastFunc func(ev models.Event)

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	TotalConnected int64 `json:"total_connected"`
	TotalViews     int64 `json:"total_views"`
}

// Counter holds the connected and page-view totals.
type Counter struct {
	connected atomic.Int64
	views     atomic.Int64
	broadcast BroadcastFunc
}

// NewCounter returns a zeroed counter that announces changes through b.
// A nil b disables announcements.
func NewCounter(b BroadcastFunc) *Counter {
	if b == nil {
		b = func(models.Event) {}
	}
	return &Counter{broadcast: b}
}

// OnConnect increments the connected total, announces it and returns it.
func (c *Counter) OnConnect() int64 {
	n := c.connected.Add(1)
	c.broadcast(models.NewEvent(models.EventTotalUsersUpdated, models.CountPayload{Count: n}))
	return n
}

// OnDisconnect decrements the connected total, floored at zero, announces
// it and returns it.
func (c *Counter) OnDisconnect() int64 {
	var n int64
	for {
		cur := c.connected.Load()
		if cur <= 0 {
			n = 0
			break
		}
		if c.connected.CompareAndSwap(cur, cur-1) {
			n = cur - 1
			break
		}
	}
	c.broadcast(models.NewEvent(models.EventTotalUsersUpdated, models.CountPayload{Count: n}))
	return n
}

// OnPageView increments the page-view total, announces it and returns it.
func (c *Counter) OnPageView() int64 {
	n := c.views.Add(1)
	c.broadcast(models.NewEvent(models.EventTotalViewsUpdated, models.CountPayload{Count: n}))
	return n
}

// Snapshot returns the current totals.
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{TotalConnected: c.connected.Load(), TotalViews: c.views.Load()}
}
