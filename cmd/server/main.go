// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/api"
	"github.com/B12048/TibaMe-repo-sub002/internal/auth"
	"github.com/B12048/TibaMe-repo-sub002/internal/chat"
	"github.com/B12048/TibaMe-repo-sub002/internal/config"
	"github.com/B12048/TibaMe-repo-sub002/internal/eventbus"
	"github.com/B12048/TibaMe-repo-sub002/internal/hub"
	"github.com/B12048/TibaMe-repo-sub002/internal/logging"
	"github.com/B12048/TibaMe-repo-sub002/internal/presence"
	"github.com/B12048/TibaMe-repo-sub002/internal/supervisor"
	"github.com/B12048/TibaMe-repo-sub002/internal/supervisor/services"
	ws "github.com/B12048/TibaMe-repo-sub002/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("storage", cfg.Storage.Backend).
		Bool("events", cfg.Events.Enabled).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Lobby")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("backend", st.Name()).Msg("Store initialized")

	var (
		publisher     chat.Publisher
		eventsHealthy func() bool
		routerOpts    []chat.Option
	)
	if cfg.Events.Enabled {
		bus, err := eventbus.Open(ctx, cfg.Events)
		if err != nil {
			return err
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event stream")
			}
		}()
		publisher = bus
		eventsHealthy = bus.Healthy
		routerOpts = append(routerOpts, chat.WithPublisher(bus))
		logging.Info().Str("backend", bus.Backend()).Msg("Event stream enabled")
	}

	hubCfg := hub.Config{
		SendBuffer:       cfg.Hub.SendBuffer,
		MaxTextLength:    cfg.Hub.MaxTextLength,
		InvokeRate:       cfg.Hub.InvokeRate,
		InvokeBurst:      cfg.Hub.InvokeBurst,
		OperationTimeout: cfg.Storage.OperationTimeout,
		SampleInterval:   cfg.Hub.SampleInterval,
		Handles:          presence.NewHandles(),
	}

	chatReg := presence.NewRegistry()
	privateReg := presence.NewRegistry()
	presenceReg := presence.NewRegistry()
	counter := presence.NewCounter(chat.Fanout{Endpoint: hub.KindPresence.String()}.BroadcastFunc(presenceReg))

	chatEndpoint := hub.NewChatEndpoint(chat.NewRouter(hub.KindChat.String(), chatReg, st, st, routerOpts...), hubCfg)
	privateEndpoint := hub.NewPrivateChatEndpoint(chat.NewRouter(hub.KindPrivateChat.String(), privateReg, st, st, routerOpts...), hubCfg)
	presenceEndpoint := hub.NewPresenceEndpoint(presenceReg, counter, publisher, hubCfg)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}
	authMW := auth.NewMiddleware(jwtManager, cfg.Security.TokenQueryParam)

	if cfg.Security.RateLimitOff {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Store:          st,
		Chat:           chatEndpoint,
		Private:        privateEndpoint,
		Presence:       presenceEndpoint,
		Auth:           authMW,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Transport: ws.Config{
			WriteWait:      cfg.Hub.WriteWait,
			PongWait:       cfg.Hub.PongWait,
			PingInterval:   cfg.Hub.PingInterval,
			MaxMessageSize: cfg.Hub.MaxMessageSize,
		},
		OperationTimeout: cfg.Storage.OperationTimeout,
		EventsHealthy:    eventsHealthy,
	})

	chiMW := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.AllowedOrigins,
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitOff,
	})
	router := api.NewRouter(handler, chiMW, authMW)

	// No WriteTimeout: websocket connections are long-lived writers.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	tree.AddDataService(services.NewStoreMonitor(st, 30*time.Second, cfg.Storage.OperationTimeout))
	for _, e := range []*hub.Endpoint{chatEndpoint, privateEndpoint, presenceEndpoint} {
		tree.AddMessagingService(services.NewHubService(e))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
