// Lobby - Real-time Presence and Messaging
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/B12048/TibaMe-repo-sub002

// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery results.
const (
	DeliveryOK      = "delivered"
	DeliveryStale   = "stale"
	DeliveryDropped = "dropped"
)

var (
	// WebSocket Metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lobby_websocket_connections",
			Help: "Current number of open websocket connections",
		},
		[]string{"endpoint"},
	)

	WSOnlineUsers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lobby_online_users",
			Help: "Distinct users holding at least one connection",
		},
		[]string{"endpoint"},
	)

	WSFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_websocket_frames_received_total",
			Help: "Inbound frames by endpoint and method",
		},
		[]string{"endpoint", "method"},
	)

	WSDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_push_deliveries_total",
			Help: "Outbound pushes by endpoint and result (delivered, stale, dropped)",
		},
		[]string{"endpoint", "result"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_websocket_errors_total",
			Help: "Websocket transport errors",
		},
		[]string{"error_type"},
	)

	InvokeRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_invoke_rejected_total",
			Help: "Invocations rejected with an invokeError frame",
		},
		[]string{"endpoint", "code"},
	)

	// Message Metrics
	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_messages_persisted_total",
			Help: "Messages durably stored",
		},
		[]string{"kind"},
	)

	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_persistence_errors_total",
			Help: "Failed durable writes",
		},
		[]string{"kind"},
	)

	PersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lobby_persist_duration_seconds",
			Help:    "Duration of durable message writes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Presence Metrics
	PresenceConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lobby_presence_connected",
			Help: "Presence counter: total connected",
		},
	)

	PageViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lobby_page_views_total",
			Help: "Page views reported through the presence endpoint",
		},
	)

	// Event Stream Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_events_published_total",
			Help: "Message events published by topic and result",
		},
		[]string{"topic", "result"},
	)

	StoreUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lobby_store_up",
			Help: "Whether the last store health check succeeded (1) or failed (0)",
		},
		[]string{"backend"},
	)

	// Cache Metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lobby_cache_lookups_total",
			Help: "Cache lookups by cache and result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lobby_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lobby_api_request_duration_seconds",
			Help:    "REST API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// RecordDelivery counts one push attempt.
func RecordDelivery(endpoint, result string) {
	WSDeliveries.WithLabelValues(endpoint, result).Inc()
}

// RecordPersist records one durable write attempt of the given kind.
func RecordPersist(kind string, duration time.Duration, err error) {
	PersistDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		PersistenceErrors.WithLabelValues(kind).Inc()
		return
	}
	MessagesPersisted.WithLabelValues(kind).Inc()
}

// RecordEventPublish counts one event stream publish.
func RecordEventPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest observes one REST request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// SetEndpointGauges samples an endpoint's registry sizes.
func SetEndpointGauges(endpoint string, connections, users int) {
	WSConnections.WithLabelValues(endpoint).Set(float64(connections))
	WSOnlineUsers.WithLabelValues(endpoint).Set(float64(users))
}

// RecordCacheLookup counts one cache lookup.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// SetStoreUp records a store health check result.
func SetStoreUp(backend string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	StoreUp.WithLabelValues(backend).Set(v)
}

// SetBreakerState maps a gobreaker state name to the gauge encoding.
func SetBreakerState(name, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
