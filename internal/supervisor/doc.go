// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package supervisor runs Showroom's long-lived services under suture v4.

	RootSupervisor ("showroom")
	├── DataSupervisor ("data-layer")
	│   └── OccupancySync ("occupancy-sync")
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocketHubService ("websocket-hub")
	└── APISupervisor ("api-layer")
	    └── HTTPServerService ("http-server")

A crashing service is restarted with backoff inside its own layer. Supervisor
events (start, failure, backoff, stop timeout) are logged through
sutureslog into the zerolog-backed slog handler from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(occupancySync)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

Shutdown order is the reverse of start: the api layer stops accepting
requests, the hub closes connections (each close runs the session's
disconnect transition), and the sync consumer drains until the bus is closed.
*/
package supervisor
