// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/showroom/internal/analytics"
	"github.com/tomtom215/showroom/internal/api"
	"github.com/tomtom215/showroom/internal/config"
	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/presence"
	"github.com/tomtom215/showroom/internal/supervisor"
	"github.com/tomtom215/showroom/internal/supervisor/services"
	syncpkg "github.com/tomtom215/showroom/internal/sync"
	ws "github.com/tomtom215/showroom/internal/websocket"
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

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Showroom stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until a shutdown signal arrives.
func run(cfg *config.Config) error {
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("store_path", cfg.Database.Path).
		Bool("store_in_memory", cfg.Database.InMemory).
		Bool("analytics_enabled", cfg.Analytics.Enabled).
		Msg("Starting Showroom")

	ctx := context.Background()

	db, err := initStores(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Err(err).Msg("Error closing store database")
		}
	}()

	events, err := initAnalytics(&cfg.Analytics)
	if err != nil {
		return err
	}
	if events != nil {
		defer func() {
			if err := events.Close(); err != nil {
				logging.Err(err).Msg("Error closing analytics database")
			}
		}()
	}

	occupancy, err := syncpkg.NewOccupancySync(db, syncpkg.Config{
		WriteTimeout: cfg.Presence.SyncWriteTimeout,
		Buffer:       1024,
		Breaker: syncpkg.BreakerConfig{
			FailureThreshold: cfg.Presence.BreakerFailureThreshold,
			OpenTimeout:      cfg.Presence.BreakerOpenTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("create occupancy sync: %w", err)
	}
	defer func() {
		if err := occupancy.Close(); err != nil {
			logging.Err(err).Msg("Error closing occupancy bus")
		}
	}()

	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)
	coordinator := presence.NewCoordinator(registry, hub, occupancy)

	handler := api.NewHandler(db, events, coordinator, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddDataService(occupancy)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

// initStores opens the document store, seeds demo data when asked and clears
// occupancy left behind by a previous process.
func initStores(ctx context.Context, cfg *config.DatabaseConfig) (*database.DB, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize store database: %w", err)
	}

	if cfg.SeedDemoData {
		n, err := db.SeedDemoData(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
		logging.Info().Int("inserted", n).Msg("Demo stores seeded")
	}

	reset, err := db.ResetActiveUsers(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reset active users: %w", err)
	}
	if reset > 0 {
		logging.Info().Int("stores", reset).Msg("Cleared stale active user counts")
	}
	return db, nil
}

// initAnalytics opens the DuckDB event store. It returns nil when analytics
// is disabled.
func initAnalytics(cfg *config.AnalyticsConfig) (*analytics.DB, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Analytics disabled (ANALYTICS_ENABLED=false)")
		return nil, nil
	}
	events, err := analytics.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize analytics database: %w", err)
	}
	return events, nil
}
