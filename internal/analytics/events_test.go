// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package analytics

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/showroom/internal/config"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.AnalyticsConfig{Enabled: true, Path: MemoryPath, Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func track(t *testing.T, db *DB, event, store, domain string, ts time.Time) {
	t.Helper()
	ev := &models.AnalyticsEvent{Event: event, StoreID: store, Domain: domain, Timestamp: ts}
	if err := db.Track(context.Background(), ev); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
}

func TestTrackDefaultsTimestamp(t *testing.T) {
	db := setupTestDB(t)
	ev := &models.AnalyticsEvent{Event: models.EventWidgetLoaded, Domain: "shop.example.com"}

	before := time.Now().UTC().Add(-time.Second)
	if err := db.Track(context.Background(), ev); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if ev.ID == "" {
		t.Error("Track() did not assign an id")
	}
	if ev.Timestamp.Before(before) {
		t.Errorf("Timestamp = %v, want now", ev.Timestamp)
	}
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", now.Add(-time.Duration(i)*time.Minute))
	}
	track(t, db, models.EventVideoLoaded, "store_001", "a.example.com", now)
	track(t, db, models.EventVideoClicked, "store_001", "b.example.com", now)
	track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", now.AddDate(0, 0, -30))
	track(t, db, models.EventWidgetLoaded, "store_002", "c.example.com", now)

	summary, err := db.Summary(context.Background(), models.EventFilter{
		StoreID: "store_001",
		Since:   now.AddDate(0, 0, -7),
	})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if summary.TotalWidgetLoads != 4 {
		t.Errorf("TotalWidgetLoads = %d, want 4", summary.TotalWidgetLoads)
	}
	if summary.TotalVideoLoads != 1 || summary.TotalVideoClicks != 1 {
		t.Errorf("video loads/clicks = %d/%d, want 1/1", summary.TotalVideoLoads, summary.TotalVideoClicks)
	}
	if summary.ConversionRate != 25 {
		t.Errorf("ConversionRate = %v, want 25", summary.ConversionRate)
	}
	if summary.UniqueDomains != 2 {
		t.Errorf("UniqueDomains = %d, want 2", summary.UniqueDomains)
	}
	if len(summary.Events) != 6 {
		t.Errorf("recent events = %d, want 6", len(summary.Events))
	}
	for i := 1; i < len(summary.Events); i++ {
		if summary.Events[i].Timestamp.After(summary.Events[i-1].Timestamp) {
			t.Fatal("recent events not sorted newest first")
		}
	}
}

func TestSummaryEmpty(t *testing.T) {
	db := setupTestDB(t)

	summary, err := db.Summary(context.Background(), models.EventFilter{Domain: "nobody.example.com"})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.ConversionRate != 0 || summary.TotalWidgetLoads != 0 || len(summary.Events) != 0 {
		t.Errorf("empty summary = %+v", summary)
	}
}

func TestSummaryRecentEventsCapped(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	for i := 0; i < summaryRecentEvents+5; i++ {
		track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", now.Add(-time.Duration(i)*time.Second))
	}

	summary, err := db.Summary(context.Background(), models.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Events) != summaryRecentEvents {
		t.Errorf("recent events = %d, want %d", len(summary.Events), summaryRecentEvents)
	}
	if summary.TotalWidgetLoads != summaryRecentEvents+5 {
		t.Errorf("TotalWidgetLoads = %d, want all events counted", summary.TotalWidgetLoads)
	}
}

func TestEventsPagination(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", base.Add(time.Duration(i)*time.Hour))
	}
	track(t, db, models.EventVideoClicked, "store_001", "a.example.com", base.Add(10*time.Hour))

	page, err := db.Events(context.Background(), models.EventFilter{EventType: models.EventWidgetLoaded}, 2, 1)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if page.Count != 2 || page.Limit != 2 || page.Skip != 1 {
		t.Errorf("page = count %d limit %d skip %d", page.Count, page.Limit, page.Skip)
	}
	if want := base.Add(3 * time.Hour); !page.Events[0].Timestamp.Equal(want) {
		t.Errorf("first event at %v, want %v", page.Events[0].Timestamp, want)
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		limit, skip         int
		wantLimit, wantSkip int
	}{
		{0, 0, DefaultEventLimit, 0},
		{-5, -1, DefaultEventLimit, 0},
		{5000, 10, MaxEventLimit, 10},
		{50, 3, 50, 3},
	}
	for _, tt := range tests {
		l, s := clampPage(tt.limit, tt.skip)
		if l != tt.wantLimit || s != tt.wantSkip {
			t.Errorf("clampPage(%d, %d) = (%d, %d), want (%d, %d)", tt.limit, tt.skip, l, s, tt.wantLimit, tt.wantSkip)
		}
	}
}

func TestConversionRate(t *testing.T) {
	tests := []struct {
		clicks, loads int
		want          float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := conversionRate(tt.clicks, tt.loads); got != tt.want {
			t.Errorf("conversionRate(%d, %d) = %v, want %v", tt.clicks, tt.loads, got, tt.want)
		}
	}
}

func TestClear(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", now)
	track(t, db, models.EventWidgetLoaded, "store_001", "a.example.com", now)
	track(t, db, models.EventWidgetLoaded, "store_002", "b.example.com", now)
	ctx := context.Background()

	n, err := db.Clear(ctx, "store_001")
	if err != nil || n != 2 {
		t.Fatalf("Clear(store_001) = %d, %v; want 2", n, err)
	}

	n, err = db.Clear(ctx, "")
	if err != nil || n != 1 {
		t.Fatalf("Clear(all) = %d, %v; want 1", n, err)
	}

	page, _ := db.Events(ctx, models.EventFilter{}, 10, 0)
	if page.Count != 0 {
		t.Errorf("events remaining = %d", page.Count)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
