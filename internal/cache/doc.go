// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

/*
Package cache provides a thread-safe LRU cache with per-entry expiration.

The widget endpoint is hit on every page view of every site that embeds the
widget, while widget settings change only when a store is created. The API
layer keeps resolved widget configurations here so repeated lookups for the
same domain skip the document store.

# Usage

	widgets := cache.NewLRU[models.WidgetConfig](1024, 5*time.Minute)
	if cfg, ok := widgets.Get("shop.example.com"); ok {
		return cfg
	}
	widgets.Add("shop.example.com", cfg)

Expired entries are removed lazily on Get, or in bulk by CleanupExpired.
*/
package cache
