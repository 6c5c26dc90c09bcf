// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/showroom/internal/analytics"
	"github.com/tomtom215/showroom/internal/cache"
	"github.com/tomtom215/showroom/internal/config"
	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
	ws "github.com/tomtom215/showroom/internal/websocket"
)

// Occupancy is the presence state the REST surface needs: the websocket
// transitions, a read-only member count and a way to re-persist that count.
type Occupancy interface {
	ws.Presence
	Occupancy(room string) int
	Resync(room string)
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, websocket upgrade
//   - handlers_health.go: landing page and probes
//   - handlers_stores.go: store documents, model positions, presence
//   - handlers_widget.go: widget configuration lookup
//   - handlers_analytics.go: widget event ingestion and reporting
type Handler struct {
	db        *database.DB
	events    *analytics.DB // nil when analytics is disabled
	presence  Occupancy
	wsHub     *ws.Hub
	config    *config.Config
	widgets   *cache.LRU[models.WidgetConfig]
	startTime time.Time
}

const (
	widgetCacheSize = 1024
	widgetCacheTTL  = 5 * time.Minute
)

// NewHandler creates a new API handler. events may be nil.
func NewHandler(db *database.DB, events *analytics.DB, presence Occupancy, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		db:        db,
		events:    events,
		presence:  presence,
		wsHub:     wsHub,
		config:    cfg,
		widgets:   cache.NewLRU[models.WidgetConfig](widgetCacheSize, widgetCacheTTL),
		startTime: time.Now(),
	}
}

// WebSocket upgrades the request to the real-time presence channel.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil || h.presence == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, h.presence, h.clientConfig())
	if !h.wsHub.Attach(client) {
		logging.Debug().Str("sid", client.ID()).Msg("WebSocket connection dropped: hub stopping")
	}
}

func (h *Handler) clientConfig() ws.ClientConfig {
	if h.config == nil {
		return ws.DefaultClientConfig()
	}
	p := h.config.Presence
	return ws.ClientConfig{
		SendBuffer: p.ClientSendBuffer,
		RateLimit:  p.ClientRateLimit,
		RateBurst:  p.ClientRateBurst,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin on websocket handshakes.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
