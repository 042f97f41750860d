// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/B12048/TibaMe-repo-sub002/internal/config"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
)

// Bus owns a Publisher and whatever backend resources it needs.
type Bus struct {
	*Publisher

	backend string
	channel *gochannel.GoChannel
	server  *EmbeddedServer
	conn    *natsgo.Conn
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.EventsConfig) (*Bus, error) {
	logger := WatermillLogger()
	switch cfg.Backend {
	case config.EventsGoChannel, "":
		return openGoChannel(cfg, logger), nil
	case config.EventsNATS:
		return openNATS(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func openGoChannel(cfg config.EventsConfig, logger watermill.LoggerAdapter) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
	return &Bus{
		Publisher: NewPublisher(ch, cfg.TopicPrefix),
		backend:   config.EventsGoChannel,
		channel:   ch,
	}
}

func openNATS(ctx context.Context, cfg config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	b := &Bus{backend: config.EventsNATS}
	url := cfg.URL

	if cfg.EmbeddedServer {
		scfg := ServerConfig{Host: "127.0.0.1", Port: server.RANDOM_PORT}
		if cfg.URL != "" {
			var err error
			if scfg, err = ServerConfigFromURL(cfg.URL); err != nil {
				return nil, err
			}
		}
		scfg.JetStream = cfg.JetStream
		scfg.StoreDir = cfg.StoreDir
		srv, err := NewEmbeddedServer(scfg)
		if err != nil {
			return nil, err
		}
		b.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Bool("jetstream", srv.JetStreamEnabled()).Msg("embedded NATS server started")
	}

	if cfg.JetStream {
		nc, err := natsgo.Connect(url, natsgo.Name("lobby-stream-init"))
		if err != nil {
			b.shutdownServer()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		b.conn = nc
		if err := EnsureStream(ctx, nc, StreamName(cfg.TopicPrefix), []string{subjectWildcard(cfg.TopicPrefix)}); err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: false, // EnsureStream owns the stream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	b.Publisher = NewPublisher(pub, cfg.TopicPrefix)
	return b, nil
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("lobby-events"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// StreamName is the JetStream stream holding every topic under prefix.
func StreamName(prefix string) string {
	name := strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(prefix))
	if name == "" {
		return "EVENTS"
	}
	return name + "_EVENTS"
}

func subjectWildcard(prefix string) string {
	if prefix == "" {
		return ">"
	}
	return prefix + ".>"
}

// EnsureStream creates the stream or updates its configuration.
func EnsureStream(ctx context.Context, nc *natsgo.Conn, name string, subjects []string) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", name, err)
	}
	return nil
}

// Backend returns the backend name.
func (b *Bus) Backend() string { return b.backend }

// Subscriber returns the in-process subscriber on the gochannel backend
// and nil otherwise.
func (b *Bus) Subscriber() message.Subscriber {
	if b.channel == nil {
		return nil
	}
	return b.channel
}

// ClientURL returns the embedded server URL, or "" when none runs.
func (b *Bus) ClientURL() string {
	if b.server == nil {
		return ""
	}
	return b.server.ClientURL()
}

// Healthy reports whether the backend can accept publishes.
func (b *Bus) Healthy() bool {
	if b.server != nil && !b.server.IsRunning() {
		return false
	}
	if b.conn != nil && !b.conn.IsConnected() {
		return false
	}
	return true
}

// Close closes the publisher, the stream connection and the embedded server.
func (b *Bus) Close() error {
	var errs []error
	if b.Publisher != nil {
		if err := b.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	b.shutdownServer()
	return errors.Join(errs...)
}

func (b *Bus) shutdownServer() {
	if b.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("embedded NATS server shutdown")
	}
}
