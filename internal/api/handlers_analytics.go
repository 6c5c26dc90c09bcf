// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/showroom/internal/analytics"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
)

const (
	defaultSummaryDays = 7
	maxSummaryDays     = 365
)

// requireAnalytics writes 503 and returns false when analytics is disabled.
func (h *Handler) requireAnalytics(rw *ResponseWriter) bool {
	if h.events == nil {
		rw.ServiceUnavailable("Analytics is disabled")
		return false
	}
	return true
}

// TrackEvent ingests one widget event.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireAnalytics(rw) {
		return
	}

	var ev models.AnalyticsEvent
	if !decodeAndValidate(rw, r, &ev) {
		return
	}
	if ev.UserAgent == "" {
		ev.UserAgent = r.UserAgent()
	}
	if ev.Referrer == "" {
		ev.Referrer = r.Referer()
	}

	if err := h.events.Track(r.Context(), &ev); err != nil {
		rw.DatabaseError(err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("event", sanitizeLogValue(ev.Event)).
		Str("store_id", sanitizeLogValue(ev.StoreID)).
		Msg("Analytics event tracked")
	rw.Success(models.TrackResponse{
		Success: true,
		Message: fmt.Sprintf("Event '%s' tracked successfully", ev.Event),
	})
}

// AnalyticsSummary aggregates the events of the last ?days= days (default 7).
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireAnalytics(rw) {
		return
	}

	days, err := getIntParam(r, "days", defaultSummaryDays)
	if err != nil || days < 1 || days > maxSummaryDays {
		rw.BadRequest(fmt.Sprintf("days must be an integer between 1 and %d", maxSummaryDays))
		return
	}

	q := r.URL.Query()
	summary, err := h.events.Summary(r.Context(), models.EventFilter{
		StoreID: q.Get("storeId"),
		Domain:  q.Get("domain"),
		Since:   time.Now().UTC().AddDate(0, 0, -days),
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(summary)
}

// AnalyticsEvents returns raw events newest first.
func (h *Handler) AnalyticsEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireAnalytics(rw) {
		return
	}

	limit, err := getIntParam(r, "limit", analytics.DefaultEventLimit)
	if err != nil || limit > analytics.MaxEventLimit {
		rw.BadRequest(fmt.Sprintf("limit must be an integer no greater than %d", analytics.MaxEventLimit))
		return
	}
	skip, err := getIntParam(r, "skip", 0)
	if err != nil || skip < 0 {
		rw.BadRequest("skip must be a non-negative integer")
		return
	}

	q := r.URL.Query()
	page, err := h.events.Events(r.Context(), models.EventFilter{
		StoreID:   q.Get("storeId"),
		Domain:    q.Get("domain"),
		EventType: q.Get("event_type"),
	}, limit, skip)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(page)
}

// ClearAnalytics deletes the events of ?storeId=, or all events, once
// ?confirm=true is given.
func (h *Handler) ClearAnalytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.requireAnalytics(rw) {
		return
	}

	if confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirm {
		rw.BadRequest("Must confirm deletion by setting confirm=true")
		return
	}

	storeID := r.URL.Query().Get("storeId")
	deleted, err := h.events.Clear(r.Context(), storeID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	logging.Ctx(r.Context()).Warn().
		Str("store_id", sanitizeLogValue(storeID)).
		Int64("deleted", deleted).
		Msg("Analytics events cleared")
	rw.Success(models.ClearResponse{
		Success:      true,
		DeletedCount: deleted,
		Message:      fmt.Sprintf("Deleted %d analytics events", deleted),
	})
}
