// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Presence Metrics
	PresenceJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_joins_total",
			Help: "Total number of store room join requests",
		},
		[]string{"result"}, // "joined", "full"
	)

	PresenceLeaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_leaves_total",
			Help: "Total number of store room leave transitions",
		},
		[]string{"reason"}, // "leave", "switch", "disconnect"
	)

	PresenceModelMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presence_model_moves_total",
			Help: "Total number of relayed model_moved events",
		},
	)

	PresenceActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_active_rooms",
			Help: "Current number of non-empty store rooms",
		},
	)

	PresenceActiveMembers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_active_members",
			Help: "Current number of sessions that are members of a store room",
		},
	)

	PresenceHandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_handler_panics_total",
			Help: "Total number of recovered panics in presence transitions",
		},
		[]string{"operation"},
	)

	// Occupancy Sync Metrics
	OccupancySyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occupancy_sync_total",
			Help: "Total number of occupancy sync messages by outcome",
		},
		[]string{"result"}, // "applied", "missing", "stale", "failed", "rejected", "invalid"
	)

	OccupancySyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "occupancy_sync_duration_seconds",
			Help:    "Duration of occupancy writes to the document store",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages queued for delivery",
		},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // "slow_consumer", "rate_limited", "decode", "validation"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Storage Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"}, // store: "badger", "duckdb"
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of failed storage operations",
		},
		[]string{"store", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordJoin records the outcome of a join request.
func RecordJoin(joined bool) {
	if joined {
		PresenceJoins.WithLabelValues("joined").Inc()
		return
	}
	PresenceJoins.WithLabelValues("full").Inc()
}

// RecordLeave records a leave transition for the given reason.
func RecordLeave(reason string) {
	PresenceLeaves.WithLabelValues(reason).Inc()
}

// UpdatePresenceGauges sets the room and member gauges.
func UpdatePresenceGauges(rooms, members int) {
	PresenceActiveRooms.Set(float64(rooms))
	PresenceActiveMembers.Set(float64(members))
}

// RecordOccupancySync records the outcome of an occupancy sync message.
// A non-zero duration is observed for messages that reached the store.
func RecordOccupancySync(result string, duration time.Duration) {
	OccupancySyncs.WithLabelValues(result).Inc()
	if duration > 0 {
		OccupancySyncDuration.Observe(duration.Seconds())
	}
}

// RecordDBQuery records a storage operation.
func RecordDBQuery(store, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
