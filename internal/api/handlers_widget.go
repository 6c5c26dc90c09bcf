// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/models"
)

// WidgetConfig returns the video overlay settings of the store that serves
// ?domain=, or of ?storeId= when no domain is given.
//
// Only found configurations are cached. A store created later for an unknown
// domain is visible on the next request.
func (h *Handler) WidgetConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	var (
		key    string
		lookup func() (*models.Store, error)
	)
	switch {
	case q.Get("domain") != "":
		domain := q.Get("domain")
		key = "domain:" + strings.ToLower(strings.TrimSpace(domain))
		lookup = func() (*models.Store, error) { return h.db.FindByDomain(r.Context(), domain) }
	case q.Get("storeId") != "":
		id := q.Get("storeId")
		key = "store:" + id
		lookup = func() (*models.Store, error) { return h.db.GetStore(r.Context(), id) }
	default:
		rw.BadRequest("domain or storeId query parameter is required")
		return
	}

	if cfg, ok := h.widgets.Get(key); ok {
		rw.Success(cfg)
		return
	}

	store, err := lookup()
	if errors.Is(err, database.ErrStoreNotFound) || (err == nil && store.WidgetConfig.VideoURL == "") {
		rw.NotFound("Widget configuration not found for this domain")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	h.widgets.Add(key, store.WidgetConfig)
	rw.Success(store.WidgetConfig)
}
