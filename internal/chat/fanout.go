// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package chat

import (
	"errors"

	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
)

// Result counts the outcome of one fan-out.
type Result struct {
	Delivered int
	Stale     int
	Dropped   int
}

// Attempted is the number of sessions a push was tried on.
func (r Result) Attempted() int { return r.Delivered + r.Stale + r.Dropped }

// Fanout pushes one event to many sessions. A failing session never stops
// delivery to the rest.
type Fanout struct {
	Endpoint string
}

// Deliver pushes ev to each session in order.
func (f Fanout) Deliver(sessions []presence.Session, ev models.Event) Result {
	var res Result
	for _, s := range sessions {
		err := s.Push(ev)
		switch {
		case err == nil:
			res.Delivered++
			metrics.RecordDelivery(f.Endpoint, metrics.DeliveryOK)
		case errors.Is(err, presence.ErrStaleHandle):
			res.Stale++
			metrics.RecordDelivery(f.Endpoint, metrics.DeliveryStale)
			logging.Debug().
				Str("endpoint", f.Endpoint).
				Stringer("handle", s.Handle()).
				Str("event", ev.Type).
				Msg("push to closed connection dropped")
		default:
			res.Dropped++
			metrics.RecordDelivery(f.Endpoint, metrics.DeliveryDropped)
			logging.Warn().
				Err(err).
				Str("endpoint", f.Endpoint).
				Stringer("handle", s.Handle()).
				Str("user", s.User().String()).
				Str("event", ev.Type).
				Msg("push dropped")
		}
	}
	return res
}

// BroadcastFunc adapts the fan-out to a presence.BroadcastFunc over every
// session in reg.
func (f Fanout) BroadcastFunc(reg *presence.Registry) presence.BroadcastFunc {
	return func(ev models.Event) {
		f.Deliver(reg.Sessions(), ev)
	}
}

// without returns sessions whose handles are not in skip.
func without(sessions, skip []presence.Session) []presence.Session {
	if len(skip) == 0 {
		return sessions
	}
	drop := make(map[presence.Handle]struct{}, len(skip))
	for _, s := range skip {
		drop[s.Handle()] = struct{}{}
	}
	out := make([]presence.Session, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := drop[s.Handle()]; !ok {
			out = append(out, s)
		}
	}
	return out
}
