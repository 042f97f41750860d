// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lobby/config.yaml",
	"/etc/lobby/config.yml",
}

// ConfigPathEnvVar names the variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Security: SecurityConfig{
			JWTIssuer:       "lobby",
			TokenTTL:        24 * time.Hour,
			TokenQueryParam: "access_token",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Storage: StorageConfig{
			Backend:           StorageDuckDB,
			BreakerEnabled:    true,
			BreakerThreshold:  5,
			BreakerTimeout:    30 * time.Second,
			BreakerInterval:   time.Minute,
			BreakerHalfOpenRq: 3,
			OperationTimeout:  5 * time.Second,
			ProfileCacheSize:  10000,
			ProfileCacheTTL:   5 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/lobby.duckdb",
			MaxMemory: "512MB",
		},
		Badger: BadgerConfig{
			Path: "/data/badger",
		},
		Hub: HubConfig{
			SendBuffer:     256,
			MaxMessageSize: 4096,
			MaxTextLength:  2000,
			InvokeRate:     5,
			InvokeBurst:    10,
			PingInterval:   54 * time.Second,
			PongWait:       60 * time.Second,
			WriteWait:      10 * time.Second,
			SampleInterval: 15 * time.Second,
		},
		Events: EventsConfig{
			Enabled:        false,
			Backend:        EventsGoChannel,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "/data/nats",
			TopicPrefix:    "lobby",
			JetStream:      true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom is Load with an explicit config file path; "" skips the file layer.
func LoadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.allowed_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"allowed_origins":       "server.allowed_origins",

	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"jwt_token_ttl":       "security.token_ttl",
	"token_query_param":   "security.token_query_param",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"storage_backend":           "storage.backend",
	"storage_breaker_enabled":   "storage.breaker_enabled",
	"storage_breaker_threshold": "storage.breaker_threshold",
	"storage_breaker_timeout":   "storage.breaker_timeout",
	"storage_operation_timeout": "storage.operation_timeout",
	"profile_cache_size":        "storage.profile_cache_size",
	"profile_cache_ttl":         "storage.profile_cache_ttl",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"badger_path":      "badger.path",
	"badger_in_memory": "badger.in_memory",

	"hub_send_buffer":      "hub.send_buffer",
	"hub_max_message_size": "hub.max_message_size",
	"hub_max_text_length":  "hub.max_text_length",
	"hub_invoke_rate":      "hub.invoke_rate",
	"hub_invoke_burst":     "hub.invoke_burst",

	"events_enabled": "events.enabled",
	"events_backend": "events.backend",
	"nats_url":       "events.url",
	"nats_embedded":  "events.embedded_server",
	"nats_store_dir": "events.store_dir",
	"nats_jetstream": "events.jetstream",
	"events_prefix":  "events.topic_prefix",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to config keys, e.g.
// HTTP_PORT -> server.port and DUCKDB_PATH -> database.path. Unmapped
// variables are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
