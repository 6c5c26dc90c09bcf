// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package services adapts Showroom components to suture.Service.

HTTPServerService turns the blocking ListenAndServe of *http.Server into a
context-aware Serve with graceful shutdown. WebSocketHubService runs the
presence hub loop. The occupancy sync consumer already implements
suture.Service and is added to the tree directly.

Every wrapper implements fmt.Stringer so suture event logs name the service.
*/
package services
