// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package analytics stores widget interaction events in an embedded DuckDB
database and answers the summary and listing queries of the analytics API.

Events are append-only rows in analytics_events. Filters on store id, domain,
event type and a lower timestamp bound are combined with AND; an empty filter
field matches every row.
*/
package analytics
