package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	apihttp "github.com/revmura/revmura-suite/adapters/http"
	"github.com/revmura/revmura-suite/adapters/memory"
	"github.com/revmura/revmura-suite/adapters/metrics"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/rs/zerolog"
)

type testBoot bool

func (b testBoot) Booted() bool { return bool(b) }

type testPinger struct{ err error }

func (p testPinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthHandler_Liveness(t *testing.T) {
	healthHandler := apihttp.NewHealthHandler(nil, nil)

	req := httptest.NewRequest("GET", "/health/live", nil)
	rec := httptest.NewRecorder()
	healthHandler.Liveness(rec, req)

	resp := rec.Result()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %s, want ok", body["status"])
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name string
		boot apihttp.BootChecker
		db   apihttp.Pinger
		want int
	}{
		{"no checks", nil, nil, 200},
		{"booted", testBoot(true), testPinger{}, 200},
		{"not booted", testBoot(false), testPinger{}, 503},
		{"database down", testBoot(true), testPinger{err: errors.New("disk I/O error")}, 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healthHandler := apihttp.NewHealthHandler(tt.boot, tt.db)

			req := httptest.NewRequest("GET", "/health/ready", nil)
			rec := httptest.NewRecorder()
			healthHandler.Readiness(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestVersion(t *testing.T) {
	req := httptest.NewRequest("GET", "/version", nil)
	rec := httptest.NewRecorder()

	apihttp.Version("", nil)(rec, req)

	resp := rec.Result()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body apihttp.VersionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Service != "revmura-suite" {
		t.Errorf("service = %s, want revmura-suite", body.Service)
	}
	if body.Version != "dev" {
		t.Errorf("version = %s, want dev", body.Version)
	}
}

func TestContentTypes(t *testing.T) {
	registry := memory.NewEntityRegistry()
	rewrites := memory.NewRewriteTable(registry)
	ctx := context.Background()

	registry.RegisterPrimary(ctx, "offer", schema.Primary{Label: "Offers", Rewrite: schema.Rewrite{Slug: "offers"}})
	registry.RegisterSecondary(ctx, "offer_cat", []string{"offer"}, schema.Secondary{Slug: "offer_cat", Label: "Offer Categories", Rewrite: schema.Rewrite{Slug: "offer-cat"}})
	if err := rewrites.RefreshRoutes(ctx); err != nil {
		t.Fatalf("RefreshRoutes error: %v", err)
	}

	req := httptest.NewRequest("GET", "/content-types", nil)
	rec := httptest.NewRecorder()
	apihttp.ContentTypes(registry, rewrites)(rec, req)

	var body apihttp.ContentTypesResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Types) != 2 {
		t.Errorf("types = %d, want 2", len(body.Types))
	}
	if len(body.Rewrites) != 2 {
		t.Errorf("rewrites = %d, want 2", len(body.Rewrites))
	}
}

func TestContentTypes_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/content-types", nil)
	rec := httptest.NewRecorder()
	apihttp.ContentTypes(nil, nil)(rec, req)

	if !strings.Contains(rec.Body.String(), `"types":[]`) {
		t.Errorf("body = %s, want empty lists", rec.Body.String())
	}
}

func TestNewRouter_BasicEndpoints(t *testing.T) {
	healthHandler := apihttp.NewHealthHandler(testBoot(true), nil)
	router := apihttp.NewRouter(healthHandler, zerolog.Nop())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", 200},
		{"GET", "/health/live", 200},
		{"GET", "/health/ready", 200},
		{"GET", "/version", 200},
		{"GET", "/content-types", 200},
		{"GET", "/nope", 404},
		{"GET", "/metrics", 404},
		{"GET", "/admin/modules", 404},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Result().StatusCode != tt.want {
				t.Errorf("status = %d, want %d", rec.Result().StatusCode, tt.want)
			}
		})
	}
}

func TestNewRouterWithConfig_AdminHandler(t *testing.T) {
	healthHandler := apihttp.NewHealthHandler(nil, nil)

	adminHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("admin " + r.URL.Path))
	})

	cfg := apihttp.RouterConfig{
		AdminHandler: adminHandler,
	}
	router := apihttp.NewRouterWithConfig(healthHandler, zerolog.Nop(), cfg)

	req := httptest.NewRequest("GET", "/admin/modules", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != 200 {
		t.Errorf("admin status = %d, want 200", rec.Result().StatusCode)
	}
	if rec.Body.String() != "admin /admin/modules" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestNewRouterWithConfig_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	healthHandler := apihttp.NewHealthHandler(nil, nil)

	cfg := apihttp.RouterConfig{
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}),
	}
	router := apihttp.NewRouterWithConfig(healthHandler, zerolog.Nop(), cfg)

	for _, path := range []string{"/version", "/version", "/health", "/admin/modules/cpt/data", "/unknown"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/version", "2xx")); got != 2 {
		t.Errorf("/version requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/admin", "4xx")); got != 1 {
		t.Errorf("/admin requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "4xx")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.RequestsTotal); got != 3 {
		t.Errorf("series = %d, want 3 (health is not observed)", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "revmura_http_requests_total") {
		t.Error("/metrics should expose request counters")
	}
}
