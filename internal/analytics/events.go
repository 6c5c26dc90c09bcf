// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tomtom215/showroom/internal/metrics"
	"github.com/tomtom215/showroom/internal/models"
)

const (
	// DefaultEventLimit is the page size of Events when none is given.
	DefaultEventLimit = 100

	// MaxEventLimit caps the page size of Events.
	MaxEventLimit = 1000

	// summaryRecentEvents is the number of recent events listed in a summary.
	summaryRecentEvents = 100
)

// Track stores one event. A zero timestamp is replaced with the current time.
func (db *DB) Track(ctx context.Context, ev *models.AnalyticsEvent) error {
	start := time.Now()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	} else {
		ev.Timestamp = ev.Timestamp.UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO analytics_events (id, event, store_id, domain, user_agent, referrer, session_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Event, ev.StoreID, ev.Domain, ev.UserAgent, ev.Referrer, ev.SessionID, ev.Timestamp)
	metrics.RecordDBQuery("duckdb", "track", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("track event %s: %w", ev.Event, err)
	}
	return nil
}

// Summary aggregates the events matching filter.
func (db *DB) Summary(ctx context.Context, filter models.EventFilter) (*models.AnalyticsSummary, error) {
	start := time.Now()
	where, args := buildWhere(filter)

	var widgetLoads, videoLoads, videoClicks, uniqueDomains int
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event = ?),
			COUNT(*) FILTER (WHERE event = ?),
			COUNT(*) FILTER (WHERE event = ?),
			COUNT(DISTINCT NULLIF(domain, ''))
		FROM analytics_events`+where,
		append([]interface{}{models.EventWidgetLoaded, models.EventVideoLoaded, models.EventVideoClicked}, args...)...,
	).Scan(&widgetLoads, &videoLoads, &videoClicks, &uniqueDomains)
	if err != nil {
		metrics.RecordDBQuery("duckdb", "summary", time.Since(start), err)
		return nil, fmt.Errorf("summarize events: %w", err)
	}

	recent, err := db.queryEvents(ctx, where, args, summaryRecentEvents, 0)
	metrics.RecordDBQuery("duckdb", "summary", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &models.AnalyticsSummary{
		TotalWidgetLoads: widgetLoads,
		TotalVideoLoads:  videoLoads,
		TotalVideoClicks: videoClicks,
		ConversionRate:   conversionRate(videoClicks, widgetLoads),
		UniqueDomains:    uniqueDomains,
		Events: lo.Map(recent, func(ev models.AnalyticsEvent, _ int) models.RecentEvent {
			return models.RecentEvent{Event: ev.Event, Domain: ev.Domain, Timestamp: ev.Timestamp}
		}),
	}, nil
}

// Events returns a page of raw events, newest first. limit is clamped to
// [1, MaxEventLimit] and a negative skip is treated as zero.
func (db *DB) Events(ctx context.Context, filter models.EventFilter, limit, skip int) (*models.EventPage, error) {
	start := time.Now()
	limit, skip = clampPage(limit, skip)
	where, args := buildWhere(filter)

	events, err := db.queryEvents(ctx, where, args, limit, skip)
	metrics.RecordDBQuery("duckdb", "events", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &models.EventPage{Events: events, Count: len(events), Skip: skip, Limit: limit}, nil
}

// Clear deletes the events of storeID, or every event when storeID is empty.
func (db *DB) Clear(ctx context.Context, storeID string) (int64, error) {
	start := time.Now()
	where, args := buildWhere(models.EventFilter{StoreID: storeID})

	res, err := db.conn.ExecContext(ctx, "DELETE FROM analytics_events"+where, args...)
	var deleted int64
	if err == nil {
		deleted, err = res.RowsAffected()
	}
	metrics.RecordDBQuery("duckdb", "clear", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	return deleted, nil
}

func (db *DB) queryEvents(ctx context.Context, where string, args []interface{}, limit, skip int) ([]models.AnalyticsEvent, error) {
	query := `
		SELECT id, event, store_id, domain, user_agent, referrer, session_id, timestamp
		FROM analytics_events` + where + `
		ORDER BY timestamp DESC, id
		LIMIT ? OFFSET ?`

	rows, err := db.conn.QueryContext(ctx, query, append(args, limit, skip)...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]models.AnalyticsEvent, 0, limit)
	for rows.Next() {
		var ev models.AnalyticsEvent
		if err := rows.Scan(&ev.ID, &ev.Event, &ev.StoreID, &ev.Domain, &ev.UserAgent, &ev.Referrer, &ev.SessionID, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// buildWhere renders filter as a WHERE clause with positional arguments.
func buildWhere(filter models.EventFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.StoreID != "" {
		conds = append(conds, "store_id = ?")
		args = append(args, filter.StoreID)
	}
	if filter.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.EventType != "" {
		conds = append(conds, "event = ?")
		args = append(args, filter.EventType)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func clampPage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

// conversionRate is clicks per widget load in percent, rounded to two decimals.
func conversionRate(clicks, loads int) float64 {
	if loads == 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(loads)*100*100) / 100
}
