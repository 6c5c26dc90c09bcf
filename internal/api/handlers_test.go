// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/showroom/internal/analytics"
	"github.com/tomtom215/showroom/internal/config"
	"github.com/tomtom215/showroom/internal/database"
	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/models"
	"github.com/tomtom215/showroom/internal/presence"
	syncpkg "github.com/tomtom215/showroom/internal/sync"
	ws "github.com/tomtom215/showroom/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type nopSyncer struct{}

func (nopSyncer) SyncCount(string, int, uint64) {}

type testEnv struct {
	handler  *Handler
	router   http.Handler
	db       *database.DB
	registry *presence.Registry
	coord    *presence.Coordinator
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Presence: config.PresenceConfig{
			ClientSendBuffer: 16,
			ClientRateLimit:  100,
			ClientRateBurst:  100,
		},
	}
}

func setupTestEnv(t *testing.T, withAnalytics bool) *testEnv {
	t.Helper()
	return setupTestEnvWithConfig(t, testConfig(), withAnalytics)
}

func setupTestEnvWithConfig(t *testing.T, cfg *config.Config, withAnalytics bool) *testEnv {
	t.Helper()
	return buildTestEnv(t, cfg, withAnalytics, func(*database.DB) presence.CountSyncer { return nopSyncer{} })
}

func buildTestEnv(t *testing.T, cfg *config.Config, withAnalytics bool, newSyncer func(*database.DB) presence.CountSyncer) *testEnv {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.SeedDemoData(context.Background()); err != nil {
		t.Fatalf("SeedDemoData() error = %v", err)
	}

	var events *analytics.DB
	if withAnalytics {
		events, err = analytics.New(&config.AnalyticsConfig{Enabled: true, Path: analytics.MemoryPath, Threads: 1})
		if err != nil {
			t.Fatalf("analytics.New() error = %v", err)
		}
		t.Cleanup(func() { _ = events.Close() })
	}

	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)
	coord := presence.NewCoordinator(registry, hub, newSyncer(db))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)

	handler := NewHandler(db, events, coord, hub, cfg)
	router := NewRouter(handler, NewChiMiddleware(ChiMiddlewareConfigFrom(cfg.Security))).SetupChi()
	return &testEnv{handler: handler, router: router, db: db, registry: registry, coord: coord}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestRoot(t *testing.T) {
	env := setupTestEnv(t, false)

	w, _ := env.do(t, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"message":"Hello World"}` {
		t.Errorf("body = %s", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestEnv(t, true)

	w, resp := env.do(t, http.MethodGet, "/health/live", nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Errorf("live = %d %+v", w.Code, resp)
	}

	w, resp = env.do(t, http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Errorf("ready = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestHealthReadyStoreClosed(t *testing.T) {
	env := setupTestEnv(t, false)
	_ = env.db.Close()

	w, resp := env.do(t, http.MethodGet, "/health/ready", nil)
	if w.Code != http.StatusServiceUnavailable || resp.Error == nil {
		t.Errorf("ready with closed store = %d %s", w.Code, w.Body.String())
	}
}

func TestListAndGetStores(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.do(t, http.MethodGet, "/api/stores", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var stores []models.Store
	decodeData(t, resp, &stores)
	if len(stores) != 2 || stores[0].ID != "store_001" || stores[1].ID != "store_002" {
		t.Errorf("stores = %+v", stores)
	}

	w, resp = env.do(t, http.MethodGet, "/api/stores/store_001", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var store models.Store
	decodeData(t, resp, &store)
	if store.Name != "Fashion Store" || len(store.Models) != 3 {
		t.Errorf("store = %+v", store)
	}

	w, resp = env.do(t, http.MethodGet, "/api/stores/nope", nil)
	if w.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Message != "Store not found" {
		t.Errorf("missing store = %d %s", w.Code, w.Body.String())
	}
}

func TestCreateStore(t *testing.T) {
	env := setupTestEnv(t, false)

	body := map[string]interface{}{
		"_id":    "store_100",
		"name":   "Shoe Corner",
		"domain": "Shoes.Example.com",
		"models": []map[string]interface{}{
			{"id": "boot_1", "url": "https://cdn.example.com/boot.glb", "position": map[string]float64{"x": 1, "y": 2}, "scale": map[string]float64{"width": 1, "height": 1}},
		},
	}
	w, resp := env.do(t, http.MethodPost, "/api/stores", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var store models.Store
	decodeData(t, resp, &store)
	if store.ActiveUsers != 0 || store.Domain != "shoes.example.com" {
		t.Errorf("created store = %+v", store)
	}

	w, resp = env.do(t, http.MethodPost, "/api/stores", body)
	if w.Code != http.StatusConflict || resp.Error.Code != ErrCodeConflict {
		t.Errorf("duplicate create = %d %s", w.Code, w.Body.String())
	}

	w, _ = env.do(t, http.MethodPost, "/api/stores", map[string]interface{}{"name": "Other", "domain": "shoes.example.com"})
	if w.Code != http.StatusConflict {
		t.Errorf("domain reuse = %d, want 409", w.Code)
	}
}

func TestCreateStoreResyncsLiveOccupancy(t *testing.T) {
	env := buildTestEnv(t, testConfig(), false, func(db *database.DB) presence.CountSyncer {
		occupancy, err := syncpkg.NewOccupancySync(db, syncpkg.DefaultConfig())
		if err != nil {
			t.Fatalf("NewOccupancySync() error = %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = occupancy.Serve(ctx)
			close(done)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
			_ = occupancy.Close()
		})
		return occupancy
	})

	// Visitors arrive before the store document exists.
	env.coord.Join("sid-a", "store_x")
	env.coord.Join("sid-b", "store_x")

	w, _ := env.do(t, http.MethodPost, "/api/stores", map[string]interface{}{"_id": "store_x", "name": "Late Store"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		store, err := env.db.GetStore(context.Background(), "store_x")
		if err == nil && store.ActiveUsers == env.registry.Count("store_x") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("persisted count never matched live count %d: store=%+v err=%v", env.registry.Count("store_x"), store, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCreateStoreValidation(t *testing.T) {
	env := setupTestEnv(t, false)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"name":`, ErrCodeBadRequest},
		{"missing name", `{"domain":"a.example.com"}`, ErrCodeValidationFailed},
		{"bad model url", `{"name":"x","models":[{"id":"m","url":"not a url","scale":{"width":1,"height":1}}]}`, ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/stores", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			var resp envelope
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if w.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("status = %d body = %s, want 400 %s", w.Code, w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestUpdateModelPosition(t *testing.T) {
	env := setupTestEnv(t, false)
	if err := env.db.SetActiveUsers(context.Background(), "store_001", 2); err != nil {
		t.Fatal(err)
	}

	w, resp := env.do(t, http.MethodPatch, "/api/stores/store_001/models/shirt_1",
		map[string]interface{}{"position": map[string]float64{"x": 42, "y": -7.5}})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", w.Code, w.Body.String())
	}
	var out models.UpdatePositionResponse
	decodeData(t, resp, &out)
	if !out.Success || out.Position != (models.Position{X: 42, Y: -7.5}) {
		t.Errorf("response = %+v", out)
	}

	store, err := env.db.GetStore(context.Background(), "store_001")
	if err != nil {
		t.Fatal(err)
	}
	if store.ActiveUsers != 2 {
		t.Errorf("ActiveUsers = %d, want 2 preserved", store.ActiveUsers)
	}

	for _, target := range []string{"/api/stores/nope/models/shirt_1", "/api/stores/store_001/models/nope"} {
		w, _ = env.do(t, http.MethodPatch, target, map[string]interface{}{"position": map[string]float64{"x": 1, "y": 1}})
		if w.Code != http.StatusNotFound {
			t.Errorf("PATCH %s = %d, want 404", target, w.Code)
		}
	}

	w, _ = env.do(t, http.MethodPatch, "/api/stores/store_001/models/shirt_1", map[string]interface{}{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing position = %d, want 400", w.Code)
	}
}

func TestStorePresence(t *testing.T) {
	env := setupTestEnv(t, false)
	env.registry.Join("store_001", "sid-a")

	w, resp := env.do(t, http.MethodGet, "/api/stores/store_001/presence", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var p models.PresenceResponse
	decodeData(t, resp, &p)
	if p.ActiveUsers != 1 || p.Capacity != presence.RoomCapacity || p.Full {
		t.Errorf("presence = %+v", p)
	}

	env.registry.Join("store_001", "sid-b")
	_, resp = env.do(t, http.MethodGet, "/api/stores/store_001/presence", nil)
	decodeData(t, resp, &p)
	if p.ActiveUsers != 2 || !p.Full {
		t.Errorf("presence = %+v, want full", p)
	}
}

func TestWidgetConfig(t *testing.T) {
	env := setupTestEnv(t, false)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"by domain", "/api/widget/config?domain=localhost", http.StatusOK},
		{"by store id", "/api/widget/config?storeId=store_001", http.StatusOK},
		{"unknown domain", "/api/widget/config?domain=unknown.example.com", http.StatusNotFound},
		{"store without widget", "/api/widget/config?storeId=store_002", http.StatusNotFound},
		{"no parameters", "/api/widget/config", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, http.MethodGet, tt.target, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				var cfg models.WidgetConfig
				decodeData(t, resp, &cfg)
				if cfg.VideoURL == "" || cfg.ClickableLink == "" {
					t.Errorf("widget config = %+v", cfg)
				}
			}
			if tt.wantStatus == http.StatusNotFound && resp.Error.Message != "Widget configuration not found for this domain" {
				t.Errorf("message = %q", resp.Error.Message)
			}
		})
	}
}

func TestWidgetConfigServedFromCache(t *testing.T) {
	env := setupTestEnv(t, false)

	if w, _ := env.do(t, http.MethodGet, "/api/widget/config?domain=LOCALHOST", nil); w.Code != http.StatusOK {
		t.Fatalf("first lookup status = %d", w.Code)
	}

	// With the document store gone, only a cached entry can answer.
	_ = env.db.Close()

	w, resp := env.do(t, http.MethodGet, "/api/widget/config?domain=localhost", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cached lookup status = %d: %s", w.Code, w.Body.String())
	}
	var cfg models.WidgetConfig
	decodeData(t, resp, &cfg)
	if cfg.VideoURL == "" {
		t.Errorf("cached widget config = %+v", cfg)
	}

	if w, _ := env.do(t, http.MethodGet, "/api/widget/config?domain=other.example.com", nil); w.Code == http.StatusOK {
		t.Error("uncached domain should not be served after the store closed")
	}
}

func TestAnalyticsFlow(t *testing.T) {
	env := setupTestEnv(t, true)

	for _, ev := range []string{models.EventWidgetLoaded, models.EventWidgetLoaded, models.EventVideoClicked} {
		w, resp := env.do(t, http.MethodPost, "/api/analytics/track",
			map[string]string{"event": ev, "storeId": "store_001", "domain": "localhost"})
		if w.Code != http.StatusOK {
			t.Fatalf("track status = %d: %s", w.Code, w.Body.String())
		}
		var tr models.TrackResponse
		decodeData(t, resp, &tr)
		if want := "Event '" + ev + "' tracked successfully"; tr.Message != want {
			t.Errorf("message = %q, want %q", tr.Message, want)
		}
	}

	w, resp := env.do(t, http.MethodGet, "/api/analytics/summary?storeId=store_001", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	var summary models.AnalyticsSummary
	decodeData(t, resp, &summary)
	if summary.TotalWidgetLoads != 2 || summary.TotalVideoClicks != 1 || summary.ConversionRate != 50 {
		t.Errorf("summary = %+v", summary)
	}

	w, resp = env.do(t, http.MethodGet, "/api/analytics/events?event_type=widget_loaded&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("events status = %d", w.Code)
	}
	var page models.EventPage
	decodeData(t, resp, &page)
	if page.Count != 1 || page.Limit != 1 || page.Events[0].Event != models.EventWidgetLoaded {
		t.Errorf("page = %+v", page)
	}

	w, _ = env.do(t, http.MethodDelete, "/api/analytics/clear?storeId=store_001", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("clear without confirm = %d, want 400", w.Code)
	}

	w, resp = env.do(t, http.MethodDelete, "/api/analytics/clear?storeId=store_001&confirm=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	var cleared models.ClearResponse
	decodeData(t, resp, &cleared)
	if cleared.DeletedCount != 3 || cleared.Message != "Deleted 3 analytics events" {
		t.Errorf("clear = %+v", cleared)
	}
}

func TestAnalyticsBadParams(t *testing.T) {
	env := setupTestEnv(t, true)

	for _, target := range []string{
		"/api/analytics/summary?days=0",
		"/api/analytics/summary?days=abc",
		"/api/analytics/events?limit=5000",
		"/api/analytics/events?skip=-1",
	} {
		if w, _ := env.do(t, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", target, w.Code)
		}
	}

	w, resp := env.do(t, http.MethodPost, "/api/analytics/track", map[string]string{"event": "widget_loaded"})
	if w.Code != http.StatusBadRequest || resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("track without domain = %d %s", w.Code, w.Body.String())
	}
}

func TestAnalyticsDisabled(t *testing.T) {
	env := setupTestEnv(t, false)

	w, _ := env.do(t, http.MethodGet, "/api/analytics/summary", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("summary with analytics disabled = %d, want 503", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimitReqs = 2
	env := setupTestEnvWithConfig(t, cfg, false)

	for i := 0; i < 2; i++ {
		if w, _ := env.do(t, http.MethodGet, "/api/stores", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
	w, resp := env.do(t, http.MethodGet, "/api/stores", nil)
	if w.Code != http.StatusTooManyRequests || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("third request = %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.do(t, http.MethodGet, "/api/nothing", nil)
	if w.Code != http.StatusNotFound || resp.Error == nil {
		t.Errorf("unknown route = %d %s", w.Code, w.Body.String())
	}
}

func TestWebSocketOrigin(t *testing.T) {
	env := setupTestEnv(t, false)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example.com"}})
	if err == nil {
		t.Fatal("Dial() from unauthorized origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %+v, want 403", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	var greeting struct {
		Type string `json:"type"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&greeting); err != nil || greeting.Type != ws.MessageTypeConnected {
		t.Fatalf("greeting = %+v, %v", greeting, err)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "join_store", "data": map[string]string{"storeId": "store_001"}}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.registry.Count("store_001") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("websocket join did not reach the registry")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w, presp := env.do(t, http.MethodGet, "/api/stores/store_001/presence", nil)
	var p models.PresenceResponse
	decodeData(t, presp, &p)
	if w.Code != http.StatusOK || p.ActiveUsers != 1 {
		t.Errorf("presence after join = %d %+v", w.Code, p)
	}
}

func TestChiMiddlewareConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := ChiMiddlewareConfigFrom(config.SecurityConfig{
		RateLimitReqs:     5,
		RateLimitWindow:   time.Second,
		RateLimitDisabled: true,
		CORSOrigins:       []string{"https://shop.example.com"},
	})
	if cfg.RateLimitRequests != 5 || !cfg.RateLimitDisabled || cfg.CORSAllowedOrigins[0] != "https://shop.example.com" {
		t.Errorf("config = %+v", cfg)
	}
	if len(cfg.CORSAllowedMethods) == 0 {
		t.Error("CORS methods not defaulted")
	}
}
