// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/B12048/TibaMe-repo-sub002/internal/hub"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/metrics"
	"github.com/B12048/TibaMe-repo-sub002/internal/models"
)

// CodeMalformedFrame is reported for frames that are not valid JSON.
const CodeMalformedFrame = "MALFORMED_FRAME"

// Config holds transport timeouts and limits.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 4096,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}

// Client is a middleman between the websocket connection and a hub connection.
type Client struct {
	ws   *websocket.Conn
	conn *hub.Conn
	cfg  Config

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient binds ws to conn. conn must already be Active.
func NewClient(ws *websocket.Conn, conn *hub.Conn, cfg Config) *Client {
	return &Client{
		ws:   ws,
		conn: conn,
		cfg:  cfg.withDefaults(),
		done: make(chan struct{}),
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once both sides have been shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.conn.Close()
		_ = c.ws.Close() // best-effort
		close(c.done)
	})
}

// readPump pumps frames from the websocket connection to the hub.
func (c *Client) readPump() {
	log := logging.Ctx(c.conn.Context())
	defer c.shutdown()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				metrics.WSErrors.WithLabelValues("read_limit").Inc()
				log.Warn().Int64("limit", c.cfg.MaxMessageSize).Msg("frame exceeds read limit")
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure):
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				log.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}

		// Refresh on any inbound traffic, not only pongs.
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		var f models.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			metrics.WSErrors.WithLabelValues("malformed_frame").Inc()
			log.Debug().Err(err).Msg("malformed frame")
			_ = c.conn.Push(models.NewEvent(models.EventInvokeError, models.InvokeErrorPayload{
				Code:    CodeMalformedFrame,
				Message: "frame is not valid JSON",
			}))
			continue
		}

		if err := c.conn.HandleFrame(f); err != nil {
			if errors.Is(err, hub.ErrConnectionClosed) {
				return
			}
			log.Debug().Err(err).Str("method", f.Method).Msg("invocation rejected")
		}
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	log := logging.Ctx(c.conn.Context())
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	send := c.conn.Send()
	for {
		select {
		case ev, ok := <-send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the connection.
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("event", ev.Type).Msg("failed to encode event")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				log.Debug().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
