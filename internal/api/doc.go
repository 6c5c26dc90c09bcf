// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package api provides the HTTP layer for Showroom.

Routes:

  - GET  /                                      landing message
  - GET  /health/live, /health/ready            liveness and readiness probes
  - GET  /api/stores                            list stores
  - POST /api/stores                            create a store
  - GET  /api/stores/{storeId}                  fetch one store
  - PATCH /api/stores/{storeId}/models/{modelId} move a model
  - GET  /api/stores/{storeId}/presence         live occupancy of a store room
  - GET  /api/widget/config                     widget settings by domain or store
  - POST /api/analytics/track                   ingest a widget event
  - GET  /api/analytics/summary                 aggregated widget events
  - GET  /api/analytics/events                  raw widget events
  - DELETE /api/analytics/clear                 delete widget events
  - GET  /ws                                    real-time presence channel
  - GET  /metrics                               Prometheus exposition

Every /api and /health response uses the envelope written by ResponseWriter:

	{"success": true, "data": {...}, "meta": {"timestamp": "...", "query_time_ms": 3}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "Store not found"}, "meta": {...}}

Middleware order is request ID, real IP, panic recovery, CORS, per-IP rate
limiting and request metrics. The websocket upgrade checks the Origin header
against the same CORS allow list.
*/
package api
