// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package models

import "time"

// Widget event names emitted by the embed script.
const (
	EventWidgetLoaded = "widget_loaded"
	EventVideoLoaded  = "video_loaded"
	EventVideoClicked = "video_clicked"
)

// AnalyticsEvent is a single tracked widget interaction.
type AnalyticsEvent struct {
	ID        string    `json:"id,omitempty"`
	Event     string    `json:"event" validate:"required,max=64"`
	StoreID   string    `json:"storeId,omitempty" validate:"omitempty,max=128"`
	Domain    string    `json:"domain" validate:"required,max=253"`
	UserAgent string    `json:"userAgent,omitempty" validate:"omitempty,max=512"`
	Referrer  string    `json:"referrer,omitempty" validate:"omitempty,max=2048"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId,omitempty" validate:"omitempty,max=128"`
}

// EventFilter narrows analytics queries. Empty fields match everything.
type EventFilter struct {
	StoreID   string
	Domain    string
	EventType string
	Since     time.Time
}

// RecentEvent is the compact form listed in a summary.
type RecentEvent struct {
	Event     string    `json:"event"`
	Domain    string    `json:"domain"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyticsSummary aggregates widget events over a lookback window.
type AnalyticsSummary struct {
	TotalWidgetLoads int           `json:"total_widget_loads"`
	TotalVideoLoads  int           `json:"total_video_loads"`
	TotalVideoClicks int           `json:"total_video_clicks"`
	ConversionRate   float64       `json:"conversion_rate"` // clicks / widget loads, percent
	UniqueDomains    int           `json:"unique_domains"`
	Events           []RecentEvent `json:"events"`
}

// EventPage is a page of raw analytics events.
type EventPage struct {
	Events []AnalyticsEvent `json:"events"`
	Count  int              `json:"count"`
	Skip   int              `json:"skip"`
	Limit  int              `json:"limit"`
}

// TrackResponse acknowledges an ingested event.
type TrackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClearResponse reports how many events were deleted.
type ClearResponse struct {
	Success      bool   `json:"success"`
	DeletedCount int64  `json:"deleted_count"`
	Message      string `json:"message"`
}
