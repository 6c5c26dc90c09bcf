// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/showroom/internal/logging"
)

// Root answers the landing route with a fixed greeting.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(map[string]string{"message": "Hello World"}); err != nil {
		logging.Error().Err(err).Msg("Failed to encode root response")
	}
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the service is ready to handle traffic
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	storeConnected := h.db != nil && h.db.Ping(ctx) == nil

	// A disabled analytics store does not block readiness.
	analyticsConnected := h.events == nil || h.events.Ping(ctx) == nil
	hubConnections := 0
	if h.wsHub != nil {
		hubConnections = h.wsHub.GetClientCount()
	}

	data := map[string]interface{}{
		"store_connected":     storeConnected,
		"analytics_connected": analyticsConnected,
		"analytics_enabled":   h.events != nil,
		"websocket_clients":   hubConnections,
		"uptime":              time.Since(h.startTime).Seconds(),
	}

	if !storeConnected || !analyticsConnected {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service is not ready", data)
		return
	}
	rw.Success(data)
}
