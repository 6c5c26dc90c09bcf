// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package database is the store document repository, backed by an embedded
BadgerDB key-value store.

Each store is one JSON document under "store:<id>". Stores that declare a
domain also get a "domain:<domain>" index key pointing at the store id, which
serves widget configuration lookups.

Writes that depend on the current document (model moves, occupancy updates)
run as read-modify-write transactions and are retried when Badger reports a
conflict with a concurrent transaction. Model moves therefore never clobber the
occupancy count and vice versa.
*/
package database
