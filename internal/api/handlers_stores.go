// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
	"github.com/tomtom215/showroom/internal/presence"
)

// ListStores returns every store document ordered by id.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stores, err := h.db.ListStores(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stores)
}

// GetStore returns a single store document.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	store, err := h.db.GetStore(r.Context(), chi.URLParam(r, "storeId"))
	if errors.Is(err, database.ErrStoreNotFound) {
		rw.NotFound("Store not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(store)
}

// CreateStore inserts a store document. The active user count is owned by
// the presence layer and always starts at zero.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.CreateStoreRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	store, err := h.db.CreateStore(r.Context(), &req)
	switch {
	case errors.Is(err, database.ErrStoreExists):
		rw.Conflict("Store already exists")
		return
	case errors.Is(err, database.ErrDomainTaken):
		rw.Conflict("Domain is already assigned to another store")
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}

	// The new document starts at zero; visitors may already be in its room.
	if h.presence != nil {
		h.presence.Resync(store.ID)
	}

	logging.Ctx(r.Context()).Info().Str("store_id", store.ID).Msg("Store created")
	rw.Created(store)
}

// UpdateModelPosition moves one model inside a store.
func (h *Handler) UpdateModelPosition(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.UpdatePositionRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	pos, err := h.db.UpdateModelPosition(r.Context(), chi.URLParam(r, "storeId"), chi.URLParam(r, "modelId"), *req.Position)
	if errors.Is(err, database.ErrStoreNotFound) || errors.Is(err, database.ErrModelNotFound) {
		rw.NotFound("Store or model not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(models.UpdatePositionResponse{Success: true, Position: pos})
}

// StorePresence reports the live member count of a store room. It reads
// the in-memory registry and never touches the document store.
func (h *Handler) StorePresence(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.presence == nil {
		rw.ServiceUnavailable("Presence service unavailable")
		return
	}

	storeID := chi.URLParam(r, "storeId")
	count := h.presence.Occupancy(storeID)
	rw.Success(models.PresenceResponse{
		StoreID:     storeID,
		ActiveUsers: count,
		Capacity:    presence.RoomCapacity,
		Full:        count >= presence.RoomCapacity,
	})
}
