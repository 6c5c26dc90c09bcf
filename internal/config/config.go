// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

// Package config loads Showroom configuration from built-in defaults, an
// optional YAML file and environment variables (in increasing priority).
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Presence  PresenceConfig  `koanf:"presence"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging" or "production"
}

// DatabaseConfig configures the BadgerDB document store holding store documents.
type DatabaseConfig struct {
	Path         string `koanf:"path"`
	InMemory     bool   `koanf:"in_memory"`      // Ignore Path and keep everything in RAM
	SeedDemoData bool   `koanf:"seed_demo_data"` // Insert demo stores on startup
}

// AnalyticsConfig configures the DuckDB analytics event store.
type AnalyticsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"` // ":memory:" for an in-process database
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// PresenceConfig tunes the real-time presence layer. The room capacity itself
// is fixed and not configurable.
type PresenceConfig struct {
	// SyncWriteTimeout bounds a single occupancy write to the document store.
	SyncWriteTimeout time.Duration `koanf:"sync_write_timeout"`

	// BreakerFailureThreshold is the number of consecutive occupancy write
	// failures that opens the circuit breaker.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerOpenTimeout      time.Duration `koanf:"breaker_open_timeout"`

	// ClientSendBuffer is the outbound queue length per connection. A
	// connection whose queue fills up is closed.
	ClientSendBuffer int `koanf:"client_send_buffer"`

	// ClientRateLimit is the sustained inbound events per second allowed per
	// connection; ClientRateBurst is the token bucket size.
	ClientRateLimit float64 `koanf:"client_rate_limit"`
	ClientRateBurst int     `koanf:"client_rate_burst"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration using the layered Koanf loader.
// See LoadWithKoanf for the source precedence.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
