// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package websocket is the real-time transport between widget instances and the
presence coordinator.

Every connection is a Client identified by a random session id. The Hub keeps
the session -> client index and delivers outbound events:

  - BroadcastToRoom sends to the current members of a store room, optionally
    excluding one session
  - SendToSession sends to one session

Delivery never waits on a connection. Each client has a bounded outbound
queue; a client whose queue is full is closed and cleaned up through the normal
disconnect path.

# Wire format

All frames are JSON text messages:

	{"type": "join_store", "data": {"storeId": "store_1"}}

Inbound types are join_store, leave_store, model_moved and ping. Outbound types
are connected, user_joined, user_left, active_user_count, store_full,
model_position_updated, pong and error.
*/
package websocket
