// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package sync persists live room occupancy to the document store.

The presence coordinator hands every count change to OccupancySync.SyncCount,
which publishes it on an in-process Watermill channel and returns at once. A
single consumer applies the updates through a circuit breaker.

Updates carry the registry version of the membership change that produced
them. The consumer remembers the highest version applied per store and drops
anything older, so concurrent deliveries can never leave an outdated count
behind: once the rooms go quiet, the persisted activeUsers of every store
equals its live member count.

A failed write is logged and counted, never retried. The next membership change
of that store rewrites the value.
*/
package sync
