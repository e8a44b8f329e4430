package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homely-rentals/homely/pkg/cache/memory"
	"github.com/homely-rentals/homely/pkg/images"
	"github.com/homely-rentals/homely/pkg/maintenance"
	"github.com/homely-rentals/homely/pkg/metrics"
	"github.com/homely-rentals/homely/pkg/models"
	"github.com/homely-rentals/homely/pkg/oplog"
	"github.com/homely-rentals/homely/pkg/report"
	"github.com/homely-rentals/homely/pkg/search"
	"github.com/homely-rentals/homely/pkg/store"
	"github.com/homely-rentals/homely/pkg/tracker"
	"github.com/homely-rentals/homely/pkg/warmup"
)

type fixture struct {
	srv   *Server
	cache *memory.Cache
	hits  *tracker.HitRate
}

func setupServer(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "server_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, l := range []models.Listing{
		{ID: "b1", Title: "Altbau loft", City: "Berlin", Rent: 900, Rooms: 2, Available: true, CreatedAt: base,
			Location: &models.GeoPoint{Lat: 52.5200, Lng: 13.4050},
			Images: []models.ListingImage{
				{URL: "https://cdn.example/b1-0.jpg", Position: 0},
				{URL: "https://cdn.example/b1-1.jpg", Position: 1, IsPrimary: true},
			},
			Analytics: models.ListingAnalytics{Views: 12, Likes: 2}},
		{ID: "b2", Title: "Room", City: "Berlin", Rent: 450, Rooms: 1, Available: true, CreatedAt: base.Add(time.Hour)},
		{ID: "h1", Title: "Flat", City: "Hamburg", Rent: 1100, Rooms: 3, Available: true, CreatedAt: base.Add(2 * time.Hour),
			Location: &models.GeoPoint{Lat: 53.5511, Lng: 9.9937}},
	} {
		require.NoError(t, st.UpsertListing(ctx, l))
	}

	slow, err := oplog.New(st.DB(), oplog.Config{Retention: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = slow.Close() })

	cache := memory.New(time.Minute)
	hits := tracker.New()

	srv := New(Config{BasePath: "/performance-optimizer", MetricsPath: "/metrics"}, Deps{
		Search:      search.New(st, cache, hits, search.Config{}, search.WithSlowLog(slow)),
		Warmup:      warmup.New(st, cache, warmup.Config{}, nil),
		Images:      st,
		Variants:    images.New(85, "webp"),
		Maintenance: maintenance.New(nil, maintenance.Default(st, slow, maintenance.Retention{SearchLogs: time.Hour}, nil)...),
		Report:      report.New(st, slow, cache, hits),
		Cache:       cache,
		Health:      st,
		Metrics:     metrics.New(cache, hits),
	})
	return &fixture{srv: srv, cache: cache, hits: hits}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestOptimizeSearch(t *testing.T) {
	f := setupServer(t)
	body := `{"filters":{"city":"Berlin","minPrice":500}}`

	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["cached"])
	assert.Equal(t, 1.0, out["resultCount"])
	results := out["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "b1", first["id"])
	assert.Equal(t, "https://cdn.example/b1-1.jpg", first["primary_image_url"])

	w, out = do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["cached"])
	assert.Equal(t, results, out["results"])
	assert.Equal(t, 50.0, f.hits.HitRatePercent())
}

func TestOptimizeSearchQueryAndRadius(t *testing.T) {
	f := setupServer(t)

	_, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", `{"query":"ALTBAU"}`)
	assert.Equal(t, 1.0, out["resultCount"])

	_, out = do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search",
		`{"location":{"lat":53.55,"lng":10.0},"radius":5}`)
	assert.Equal(t, 1.0, out["resultCount"])
	assert.Equal(t, "h1", out["results"].([]any)[0].(map[string]any)["id"])

	_, out = do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search",
		`{"location":{"lat":48.13,"lng":11.58},"radius":5}`)
	assert.Equal(t, 0.0, out["resultCount"])
	assert.Equal(t, []any{}, out["results"])
}

func TestOptimizeSearchEmptyBody(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, out["resultCount"])
}

func TestOptimizeSearchInvalidRequest(t *testing.T) {
	f := setupServer(t)

	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", `{"radius":-1}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "invalid request")

	w, _ = do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-search", `{"filters":`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCachePopular(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/cache-popular", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cached := out["cached"].(map[string]any)
	assert.Equal(t, 3.0, cached["popularApartments"])
	assert.Equal(t, 2.0, cached["cities"])
	assert.Equal(t, 2.0, cached["priceStats"])
	assert.Equal(t, 0.0, cached["trendingSearches"])
	assert.Equal(t, 4, f.cache.Len())
}

func TestPreloadImages(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/preload-images", `{"apartmentIds":["b1","b2"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	imgs := out["images"].(map[string]any)
	b1 := imgs["b1"].(map[string]any)
	assert.Equal(t, []any{
		"https://cdn.example/b1-1.jpg?resize=150x150&quality=85&format=webp",
		"https://cdn.example/b1-0.jpg?resize=150x150&quality=85&format=webp",
	}, b1["thumbnail"])
	assert.Equal(t, []any{}, imgs["b2"].(map[string]any)["original"])
	assert.Contains(t, out["preloadScript"], "b1-1.jpg?resize=150x150")

	w, out = do(t, f.srv, http.MethodPost, "/performance-optimizer/preload-images", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["success"])
}

func TestOptimizeDB(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/optimize-db", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ops := out["optimizations"].([]any)
	require.Len(t, ops, 3)
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		m := op.(map[string]any)
		names = append(names, m["operation"].(string))
		assert.Equal(t, "success", m["status"], m["result"])
	}
	assert.Equal(t, []string{"cleanup_logs", "refresh_analytics_summary", "optimize_tables"}, names)
	assert.NotEmpty(t, out["timestamp"])
}

func TestPerformanceReport(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodGet, "/performance-optimizer/performance-report", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, true, out["success"])
	perf := out["performance"].(map[string]any)
	assert.Contains(t, perf, "storeLatencyMs")
	assert.Contains(t, perf, "hitRatePercent")
	// No lookups yet, so the hit rate is 0 and below target.
	assert.Equal(t, "warning", out["status"])
	recs := out["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "cache", recs[0].(map[string]any)["type"])
}

func TestClearCache(t *testing.T) {
	f := setupServer(t)
	f.cache.Set(`search:{"city":"Berlin"}`, []byte("[]"))
	f.cache.Set(`search:{"city":"Hamburg"}`, []byte("[]"))
	f.cache.Set("popular:cities", []byte("[]"))

	w, out := do(t, f.srv, http.MethodDelete, "/performance-optimizer/clear-cache?pattern=Berlin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["cleared"])
	assert.Equal(t, "Berlin", out["pattern"])
	assert.Equal(t, 2, f.cache.Len())

	_, out = do(t, f.srv, http.MethodPost, "/performance-optimizer/clear-cache", "")
	assert.Equal(t, 2.0, out["cleared"])
	assert.Equal(t, "all", out["pattern"])
	assert.Zero(t, f.cache.Len())
}

func TestUnknownAction(t *testing.T) {
	f := setupServer(t)
	w, out := do(t, f.srv, http.MethodPost, "/performance-optimizer/reindex", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Unknown action: reindex", out["error"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	f := setupServer(t)
	w, _ := do(t, f.srv, http.MethodOptions, "/performance-optimizer/optimize-search", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRequestID(t *testing.T) {
	f := setupServer(t)

	w, _ := do(t, f.srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupServer(t)
	do(t, f.srv, http.MethodPost, "/performance-optimizer/clear-cache", "")

	w, _ := do(t, f.srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `homely_http_action_duration_seconds_count{action="clear-cache",outcome="success"} 1`)
}

type failingSearch struct{}

func (failingSearch) Search(context.Context, models.SearchFilters) (models.SearchResult, error) {
	return models.SearchResult{}, errors.New("database is locked")
}

type panickingReporter struct{}

func (panickingReporter) Report(context.Context) (models.PerformanceReport, error) {
	panic("reporter exploded")
}

func TestHandlerFailuresBecome500(t *testing.T) {
	srv := New(Config{}, Deps{Search: failingSearch{}, Report: panickingReporter{}})

	w, out := do(t, srv, http.MethodPost, "/performance-optimizer/optimize-search", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "database is locked", out["error"])

	w, out = do(t, srv, http.MethodGet, "/performance-optimizer/performance-report", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, out["error"], "reporter exploded")

	w, out = do(t, srv, http.MethodPost, "/performance-optimizer/cache-popular", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "action not configured", out["error"])
}
