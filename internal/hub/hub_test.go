// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package hub

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/chat"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type fixture struct {
	store    *store.MemoryStore
	chat     *Endpoint
	private  *Endpoint
	presence *Endpoint
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, p := range []models.Profile{
		{UserID: "alice", Username: "alice", DisplayName: "Alice"},
		{UserID: "bob", Username: "Bob", DisplayName: "Bob"},
	} {
		if err := st.UpsertUser(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	chatReg := presence.NewRegistry()
	privReg := presence.NewRegistry()
	presReg := presence.NewRegistry()
	counter := presence.NewCounter(chat.Fanout{Endpoint: "presence"}.BroadcastFunc(presReg))

	return &fixture{
		store:    st,
		chat:     NewChatEndpoint(chat.NewRouter("chat", chatReg, st, st), cfg),
		private:  NewPrivateChatEndpoint(chat.NewRouter("private", privReg, st, st), cfg),
		presence: NewPresenceEndpoint(presReg, counter, nil, cfg),
	}
}

func profile(id string) models.Profile {
	return models.Profile{UserID: models.UserID(id), Username: id, DisplayName: strings.ToUpper(id[:1]) + id[1:]}
}

func mustConnect(t *testing.T, e *Endpoint, id string) *Conn {
	t.Helper()
	c, err := e.Connect(profile(id))
	if err != nil {
		t.Fatalf("Connect(%s): %v", id, err)
	}
	return c
}

// drain returns every event currently queued on c.
func drain(c *Conn) []models.Event {
	var out []models.Event
	for {
		select {
		case ev, ok := <-c.Send():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofType(evs []models.Event, eventType string) []models.Event {
	var out []models.Event
	for _, ev := range evs {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func counts(evs []models.Event) []int64 {
	var out []int64
	for _, ev := range evs {
		out = append(out, ev.Data.(models.CountPayload).Count)
	}
	return out
}

func TestPresenceTwoTabsScenario(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	e := f.presence

	h1 := mustConnect(t, e, "alice")
	if got := e.Registry().HandlesOf("alice"); len(got) != 1 {
		t.Fatalf("after H1: handles = %v", got)
	}
	h2 := mustConnect(t, e, "alice")
	if got := e.Registry().HandlesOf("alice"); len(got) != 2 {
		t.Fatalf("after H2: handles = %v", got)
	}
	if e.Counter().Snapshot().TotalConnected != 2 {
		t.Errorf("TotalConnected = %d, want 2", e.Counter().Snapshot().TotalConnected)
	}

	h1.Close()
	if got := e.Registry().HandlesOf("alice"); len(got) != 1 || got[0] != h2.Handle() {
		t.Errorf("after close H1: handles = %v", got)
	}
	if !e.Registry().IsOnline("alice") {
		t.Error("alice should still be online")
	}

	h2.Close()
	if e.Registry().IsOnline("alice") {
		t.Error("alice should be offline")
	}
	if e.Counter().Snapshot().TotalConnected != 0 {
		t.Errorf("TotalConnected = %d, want 0", e.Counter().Snapshot().TotalConnected)
	}

	// H1 saw 1 and 2; H2 saw 2 and 1; the final 0 has no audience.
	if got := counts(ofType(drain(h1), models.EventTotalUsersUpdated)); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("H1 totals = %v, want [1 2]", got)
	}
	if got := counts(ofType(drain(h2), models.EventTotalUsersUpdated)); len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("H2 totals = %v, want [2 1]", got)
	}
}

func TestPresenceAnnouncesToOthers(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	bob := mustConnect(t, f.presence, "bob")
	alice := mustConnect(t, f.presence, "alice")

	bobEvents := ofType(drain(bob), models.EventUserConnected)
	if len(bobEvents) != 1 {
		t.Fatalf("bob got %d userConnected, want 1", len(bobEvents))
	}
	if p := bobEvents[0].Data.(models.UserConnectedPayload); p.UserID != "alice" || p.DisplayName != "Alice" {
		t.Errorf("payload = %+v", p)
	}
	if n := len(ofType(drain(alice), models.EventUserConnected)); n != 0 {
		t.Errorf("alice got %d userConnected about others joining before her", n)
	}
}

func TestPageViewed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := mustConnect(t, f.presence, "alice")
	drain(a)

	for i := 0; i < 2; i++ {
		if err := a.Invoke(models.MethodPageViewed, models.InvokeArguments{}); err != nil {
			t.Fatalf("pageViewed: %v", err)
		}
	}
	if got := counts(ofType(drain(a), models.EventTotalViewsUpdated)); len(got) != 2 || got[1] != 2 {
		t.Errorf("views = %v, want [1 2]", got)
	}
}

func TestClosedConnection(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	c := mustConnect(t, f.chat, "alice")
	c.Close()
	c.Close()

	if c.State() != StateClosed {
		t.Errorf("State = %s", c.State())
	}
	if err := c.Invoke(models.MethodSendAll, models.InvokeArguments{Text: "x"}); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Invoke err = %v, want ErrConnectionClosed", err)
	}
	if err := c.Push(models.NewEvent(models.EventPong, nil)); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Push err = %v, want ErrStaleHandle", err)
	}
	select {
	case <-c.Done():
	default:
		t.Error("Done not closed")
	}
	if _, ok := <-c.Send(); ok {
		t.Error("Send channel not closed")
	}
	if f.chat.Registry().ConnectionCount() != 0 {
		t.Error("closed connection still registered")
	}
}

func TestChatSendAll(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := mustConnect(t, f.chat, "alice")
	b := mustConnect(t, f.chat, "bob")

	if err := a.HandleFrame(models.Frame{Type: models.FrameInvoke, Method: models.MethodSendAll, Args: &models.InvokeArguments{Text: "hi all"}}); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	for _, c := range []*Conn{a, b} {
		evs := ofType(drain(c), models.EventMessageReceived)
		if len(evs) != 1 || evs[0].Data.(models.ChatPayload).Text != "hi all" {
			t.Errorf("%s events = %+v", c.User(), evs)
		}
	}
	if n, _ := f.store.Counts(); n != 1 {
		t.Errorf("stored = %d", n)
	}
}

func TestPrivateUnknownReceiverReportsError(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := mustConnect(t, f.private, "alice")

	err := a.HandleFrame(models.Frame{Type: models.FrameInvoke, Method: models.MethodSendPrivate, Args: &models.InvokeArguments{Receiver: "ghost", Text: "hello?"}})
	if !errors.Is(err, chat.ErrRecipientNotFound) {
		t.Fatalf("err = %v, want ErrRecipientNotFound", err)
	}
	evs := ofType(drain(a), models.EventInvokeError)
	if len(evs) != 1 {
		t.Fatalf("invokeError events = %d, want 1", len(evs))
	}
	p := evs[0].Data.(models.InvokeErrorPayload)
	if p.Code != CodeRecipientNotFound || p.Method != models.MethodSendPrivate {
		t.Errorf("payload = %+v", p)
	}
	if a.State() != StateActive {
		t.Error("connection should stay active after a rejected invoke")
	}
	if _, n := f.store.Counts(); n != 0 {
		t.Errorf("stored private = %d, want 0", n)
	}
}

func TestPrivateCaseInsensitiveReceiver(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := mustConnect(t, f.private, "alice")
	b := mustConnect(t, f.private, "bob")

	if err := a.Invoke(models.MethodSendPrivate, models.InvokeArguments{Receiver: "BOB", Text: "hey"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if n := len(ofType(drain(b), models.EventPrivateMessageReceived)); n != 1 {
		t.Errorf("bob got %d, want 1", n)
	}
	if n := len(ofType(drain(a), models.EventPrivateMessageReceived)); n != 1 {
		t.Errorf("alice echo = %d, want 1", n)
	}
}

func TestInvokeRejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTextLength = 5
	f := newFixture(t, cfg)

	tests := []struct {
		name     string
		endpoint *Endpoint
		method   string
		args     models.InvokeArguments
		wantCode string
	}{
		{"wrong method for endpoint", f.chat, models.MethodSendPrivate, models.InvokeArguments{Receiver: "bob", Text: "x"}, CodeUnknownMethod},
		{"pageViewed on chat", f.chat, models.MethodPageViewed, models.InvokeArguments{}, CodeUnknownMethod},
		{"blank text", f.chat, models.MethodSendAll, models.InvokeArguments{Text: "  "}, CodeValidation},
		{"text too long", f.chat, models.MethodSendAll, models.InvokeArguments{Text: "toolong"}, CodeValidation},
		{"missing receiver", f.private, models.MethodSendPrivate, models.InvokeArguments{Text: "x"}, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustConnect(t, tt.endpoint, "alice")
			defer c.Close()
			err := c.Invoke(tt.method, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ErrorCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestInvokeRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InvokeRate = 0.001
	cfg.InvokeBurst = 2
	f := newFixture(t, cfg)
	c := mustConnect(t, f.presence, "alice")

	for i := 0; i < 2; i++ {
		if err := c.Invoke(models.MethodPageViewed, models.InvokeArguments{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if err := c.Invoke(models.MethodPageViewed, models.InvokeArguments{}); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestPushBufferFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBuffer = 1
	f := newFixture(t, cfg)
	c := mustConnect(t, f.chat, "alice")

	if err := c.Push(models.NewEvent(models.EventPong, nil)); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := c.Push(models.NewEvent(models.EventPong, nil)); !errors.Is(err, presence.ErrBufferFull) {
		t.Errorf("second push err = %v, want ErrBufferFull", err)
	}
}

func TestPingFrame(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	c := mustConnect(t, f.chat, "alice")
	if err := c.HandleFrame(models.Frame{Type: models.FramePing}); err != nil {
		t.Fatal(err)
	}
	if evs := drain(c); len(evs) != 1 || evs[0].Type != models.EventPong {
		t.Errorf("events = %+v", evs)
	}
	if err := c.HandleFrame(models.Frame{Type: "mystery"}); err != nil {
		t.Errorf("unknown frame err = %v", err)
	}
}

func TestConcurrentConnectDisconnect(t *testing.T) {
	const n, m = 100, 60
	f := newFixture(t, DefaultConfig())
	e := f.presence

	conns := make([]*Conn, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := e.Connect(profile([]string{"alice", "bob", "carol"}[i%3]))
			if err != nil {
				t.Error(err)
				return
			}
			conns[i] = c
		}(i)
	}
	wg.Wait()

	for i := 0; i < m; i++ {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			c.Close()
		}(conns[i])
	}
	wg.Wait()

	if got := e.Counter().Snapshot().TotalConnected; got != n-m {
		t.Errorf("TotalConnected = %d, want %d", got, n-m)
	}
	if got := e.Registry().ConnectionCount(); got != n-m {
		t.Errorf("ConnectionCount = %d, want %d", got, n-m)
	}
}

func TestServeClosesConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleInterval = 10 * time.Millisecond
	f := newFixture(t, cfg)
	a := mustConnect(t, f.chat, "alice")
	b := mustConnect(t, f.chat, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.chat.Serve(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if a.State() != StateClosed || b.State() != StateClosed {
		t.Error("connections not closed on shutdown")
	}
	if f.chat.String() != "hub-chat" {
		t.Errorf("String = %q", f.chat.String())
	}
}

func TestConnectRequiresIdentity(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if _, err := f.chat.Connect(models.Profile{}); err == nil {
		t.Error("expected error for empty identity")
	}
}
