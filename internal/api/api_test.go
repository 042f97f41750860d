// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/B12048/TibaMe-repo-sub002/internal/auth"
	"github.com/B12048/TibaMe-repo-sub002/internal/chat"
	"github.com/B12048/TibaMe-repo-sub002/internal/config"
	"github.com/B12048/TibaMe-repo-sub002/internal/hub"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
	"github.com/B12048/TibaMe-repo-sub002/internal/store"
	ws "github.com/B12048/TibaMe-repo-sub002/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const testOrigin = "http://lobby.test"

type testServer struct {
	*httptest.Server
	store    *store.MemoryStore
	jwt      *auth.JWTManager
	presence *hub.Endpoint
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	st := store.NewMemoryStore()
	jwtManager, err := auth.NewJWTManager(&config.SecurityConfig{
		JWTSecret: "this_is_a_very_long_secret_key_with_32_plus_characters",
		JWTIssuer: "lobby",
	})
	if err != nil {
		t.Fatal(err)
	}
	authMW := auth.NewMiddleware(jwtManager, "")

	hcfg := hub.DefaultConfig()
	chatEP := hub.NewChatEndpoint(chat.NewRouter("chat", presence.NewRegistry(), st, st), hcfg)
	privEP := hub.NewPrivateChatEndpoint(chat.NewRouter("private", presence.NewRegistry(), st, st), hcfg)
	presReg := presence.NewRegistry()
	presEP := hub.NewPresenceEndpoint(presReg, presence.NewCounter(chat.Fanout{Endpoint: "presence"}.BroadcastFunc(presReg)), nil, hcfg)

	h := NewHandler(HandlerConfig{
		Store:          st,
		Chat:           chatEP,
		Private:        privEP,
		Presence:       presEP,
		Auth:           authMW,
		AllowedOrigins: []string{testOrigin},
		Transport:      ws.DefaultConfig(),
	})
	chiCfg := DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = []string{testOrigin}
	chiCfg.RateLimitRequests = rateLimit
	chiCfg.RateLimitDisabled = rateLimit == 0

	srv := httptest.NewServer(NewRouter(h, NewChiMiddleware(chiCfg), authMW).SetupChi())
	t.Cleanup(func() {
		chatEP.CloseAll()
		privEP.CloseAll()
		presEP.CloseAll()
		srv.Close()
	})
	return &testServer{Server: srv, store: st, jwt: jwtManager, presence: presEP}
}

func (s *testServer) token(t *testing.T, id, username string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(models.Profile{UserID: models.UserID(id), Username: username, DisplayName: strings.ToUpper(username)})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) dial(t *testing.T, path, token, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.URL, "http") + path
	if token != "" {
		u += "?access_token=" + token
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func (s *testServer) mustDial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := s.dial(t, path, token, testOrigin)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	return conn
}

func (s *testServer) get(t *testing.T, path, token string) (int, models.APIResponse, json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var out models.APIResponse
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if resp.Header.Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
		_ = json.Unmarshal(body, &raw)
	}
	return resp.StatusCode, out, raw.Data
}

func readEventType(t *testing.T, c *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_ = c.SetReadDeadline(deadline)
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Type == want {
			return ev.Data
		}
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s: timeout", msg)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	status, resp, raw := s.get(t, "/api/v1/health", "")
	if status != http.StatusOK || resp.Status != "success" {
		t.Fatalf("status = %d, resp = %+v", status, resp)
	}
	var h models.HealthStatus
	if err := json.Unmarshal(raw, &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || h.Store != "memory" || !h.StoreHealthy || h.EventsEnabled {
		t.Errorf("health = %+v", h)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t, 0)
	_, resp, err := s.dial(t, "/ws/chat", "", testOrigin)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v", resp)
	}
}

func TestWebSocketRejectsOrigin(t *testing.T) {
	s := newTestServer(t, 0)
	tok := s.token(t, "u1", "alice")
	for _, origin := range []string{"http://evil.test", ""} {
		_, resp, err := s.dial(t, "/ws/chat", tok, origin)
		if err == nil {
			t.Fatalf("origin %q: expected dial failure", origin)
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: resp = %v", origin, resp)
		}
	}
}

func TestPresenceFlow(t *testing.T) {
	s := newTestServer(t, 0)
	alice := s.mustDial(t, "/ws/presence", s.token(t, "u1", "alice"))
	readEventType(t, alice, models.EventTotalUsersUpdated)

	bob := s.mustDial(t, "/ws/presence", s.token(t, "u2", "bob"))
	data := readEventType(t, alice, models.EventUserConnected)
	var p models.UserConnectedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.UserID != "u2" || p.DisplayName != "BOB" {
		t.Errorf("userConnected = %+v", p)
	}

	if err := bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"invoke","method":"pageViewed"}`)); err != nil {
		t.Fatal(err)
	}
	readEventType(t, alice, models.EventTotalViewsUpdated)

	_, _, raw := s.get(t, "/api/v1/presence", "")
	var snap models.PresenceSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.TotalConnected != 2 || snap.TotalViews != 1 || len(snap.OnlineUsers) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	_ = bob.Close()
	waitFor(t, func() bool { return s.presence.Counter().Snapshot().TotalConnected == 1 }, "disconnect")
}

func TestPrivateMessageAndHistory(t *testing.T) {
	s := newTestServer(t, 0)
	aliceTok := s.token(t, "u1", "alice")
	bobTok := s.token(t, "u2", "Bob")

	alice := s.mustDial(t, "/ws/private", aliceTok)

	// Bob is offline; he was seen once via the presence endpoint.
	bobPresence := s.mustDial(t, "/ws/presence", bobTok)
	_ = bobPresence.Close()
	waitFor(t, func() bool {
		_, err := s.store.LookupByName(t.Context(), "bob")
		return err == nil
	}, "directory upsert")

	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"invoke","method":"sendPrivate","args":{"receiver":"BOB","text":"see you later"}}`)); err != nil {
		t.Fatal(err)
	}
	readEventType(t, alice, models.EventPrivateMessageReceived)

	status, _, raw := s.get(t, "/api/v1/messages/private?with=alice", bobTok)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var msgs []models.PrivateMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != "see you later" || msgs[0].SenderID != "u1" || msgs[0].ReceiverID != "u2" {
		t.Errorf("messages = %+v", msgs)
	}

	// Lookup by user id also works.
	if status, _, _ := s.get(t, "/api/v1/messages/private?with=u1", bobTok); status != http.StatusOK {
		t.Errorf("lookup by id status = %d", status)
	}
}

func TestBroadcastHistory(t *testing.T) {
	s := newTestServer(t, 0)
	tok := s.token(t, "u1", "alice")
	c := s.mustDial(t, "/ws/chat", tok)
	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"type":"invoke","method":"sendAll","args":{"text":"hello room"}}`)); err != nil {
		t.Fatal(err)
	}
	readEventType(t, c, models.EventMessageReceived)

	status, resp, raw := s.get(t, "/api/v1/messages/broadcast?limit=10", tok)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var msgs []models.BroadcastMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hello room" || msgs[0].DisplayName != "ALICE" || resp.Metadata.Count != 1 {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestHistoryErrors(t *testing.T) {
	s := newTestServer(t, 0)
	tok := s.token(t, "u1", "alice")

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"no token", "/api/v1/messages/broadcast", "", http.StatusUnauthorized, ErrCodeUnauthorized},
		{"bad limit", "/api/v1/messages/broadcast?limit=abc", tok, http.StatusBadRequest, ErrCodeValidation},
		{"limit too high", "/api/v1/messages/broadcast?limit=501", tok, http.StatusBadRequest, ErrCodeValidation},
		{"negative limit", "/api/v1/messages/broadcast?limit=-1", tok, http.StatusBadRequest, ErrCodeValidation},
		{"missing with", "/api/v1/messages/private", tok, http.StatusBadRequest, ErrCodeValidation},
		{"unknown user", "/api/v1/messages/private?with=ghost", tok, http.StatusNotFound, ErrCodeNotFound},
		{"unknown route", "/api/v1/nope", tok, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := s.get(t, tt.path, tt.token)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	for i := 0; i < 2; i++ {
		if status, _, _ := s.get(t, "/api/v1/health", ""); status != http.StatusOK {
			t.Fatalf("request %d status = %d", i, status)
		}
	}
	status, resp, _ := s.get(t, "/api/v1/health", "")
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("status = %d, resp = %+v", status, resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	s.get(t, "/api/v1/health", "")

	resp, err := http.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "lobby_api_request_duration_seconds") {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
}
