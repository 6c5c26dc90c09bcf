// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package main is the entry point for the Showroom server.

Showroom serves the backend of an embeddable 3D store widget: store documents
with placed 3D models, widget video configuration, widget analytics, and a
real-time channel where at most two visitors share a store room and see each
other's model moves.

# Application Architecture

	RootSupervisor ("showroom")
	├── DataSupervisor ("data-layer")
	│   └── occupancy sync (watermill gochannel -> BadgerDB)
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket hub (presence fan-out)
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Store database: BadgerDB, optional demo seed, stale counts reset
 4. Analytics: DuckDB event store (optional)
 5. Presence: registry, websocket hub, occupancy sync, coordinator
 6. HTTP: chi router with CORS, rate limiting and metrics
 7. Supervisor tree: runs until SIGINT or SIGTERM

# Configuration

	HTTP_PORT=8000               # listen port
	BADGER_PATH=/data/showroom/stores
	BADGER_MEMORY=false          # keep store documents in RAM only
	SEED_DEMO_DATA=false         # insert store_001 and store_002
	ANALYTICS_ENABLED=true
	DUCKDB_PATH=/data/showroom/analytics.duckdb
	CORS_ORIGINS=http://localhost:3000
	LOG_LEVEL=info
	LOG_FORMAT=json

# Example

	BADGER_MEMORY=true DUCKDB_PATH=:memory: SEED_DEMO_DATA=true LOG_FORMAT=console ./showroom
*/
package main
