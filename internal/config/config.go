// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package config loads Lobby configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/B12048/TibaMe-repo-sub002/internal/validation"
)

// Storage backends.
const (
	StorageDuckDB = "duckdb"
	StorageBadger = "badger"
	StorageMemory = "memory"
)

// Event bus backends.
const (
	EventsGoChannel = "gochannel"
	EventsNATS      = "nats"
)

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Storage  StorageConfig  `koanf:"storage"`
	Database DatabaseConfig `koanf:"database"`
	Badger   BadgerConfig   `koanf:"badger"`
	Hub      HubConfig      `koanf:"hub"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// AllowedOrigins lists origins permitted to open websocket connections
	// and call the REST API. "*" allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication and throttling settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	TokenQueryParam string        `koanf:"token_query_param"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	RateLimitOff    bool          `koanf:"rate_limit_disabled"`
}

// StorageConfig selects the persistence backend. ProfileCacheSize 0
// disables the profile cache.
type StorageConfig struct {
	Backend           string        `koanf:"backend" validate:"oneof=duckdb badger memory"`
	BreakerEnabled    bool          `koanf:"breaker_enabled"`
	BreakerThreshold  uint32        `koanf:"breaker_threshold"`
	BreakerTimeout    time.Duration `koanf:"breaker_timeout"`
	BreakerInterval   time.Duration `koanf:"breaker_interval"`
	BreakerHalfOpenRq uint32        `koanf:"breaker_half_open_requests"`
	OperationTimeout  time.Duration `koanf:"operation_timeout"`
	ProfileCacheSize  int64         `koanf:"profile_cache_size" validate:"gte=0"`
	ProfileCacheTTL   time.Duration `koanf:"profile_cache_ttl"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"` // 0 = runtime.NumCPU()
}

// BadgerConfig holds BadgerDB settings.
type BadgerConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// HubConfig tunes the websocket endpoints.
type HubConfig struct {
	SendBuffer     int           `koanf:"send_buffer" validate:"gte=1"`
	MaxMessageSize int64         `koanf:"max_message_size" validate:"gte=128"`
	MaxTextLength  int           `koanf:"max_text_length" validate:"gte=0"`
	InvokeRate     float64       `koanf:"invoke_rate" validate:"gte=0"`
	InvokeBurst    int           `koanf:"invoke_burst" validate:"gte=0"`
	PingInterval   time.Duration `koanf:"ping_interval"`
	PongWait       time.Duration `koanf:"pong_wait"`
	WriteWait      time.Duration `koanf:"write_wait"`
	SampleInterval time.Duration `koanf:"sample_interval"`
}

// EventsConfig configures the message event stream.
type EventsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Backend        string `koanf:"backend" validate:"oneof=gochannel nats"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	TopicPrefix    string `koanf:"topic_prefix"`
	JetStream      bool   `koanf:"jetstream"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks field rules and cross-field constraints.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	var errs []error
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 characters"))
	}
	if c.Hub.PongWait > 0 && c.Hub.PingInterval >= c.Hub.PongWait {
		errs = append(errs, fmt.Errorf("hub.ping_interval (%s) must be shorter than hub.pong_wait (%s)", c.Hub.PingInterval, c.Hub.PongWait))
	}
	switch c.Storage.Backend {
	case StorageDuckDB:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the duckdb backend"))
		}
	case StorageBadger:
		if c.Badger.Path == "" && !c.Badger.InMemory {
			errs = append(errs, errors.New("badger.path is required unless badger.in_memory is set"))
		}
	}
	if c.Events.Enabled && c.Events.Backend == EventsNATS && c.Events.URL == "" && !c.Events.EmbeddedServer {
		errs = append(errs, errors.New("events.url is required for the nats backend without an embedded server"))
	}
	for _, o := range c.Server.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			errs = append(errs, fmt.Errorf("server.allowed_origins entry %q must be * or an http(s) origin", o))
		}
	}
	return errors.Join(errs...)
}
