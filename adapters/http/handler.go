// Package http provides the public HTTP surface of the module host: health,
// version, content types, metrics, API docs and the mounted admin API.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revmura/revmura-suite/adapters/memory"
	"github.com/revmura/revmura-suite/adapters/metrics"
	"github.com/revmura/revmura-suite/docs/swagger"
	"github.com/revmura/revmura-suite/pkg/httpjson"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// ServiceName is reported by the version endpoint.
const ServiceName = "revmura-suite"

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version" example:"0.1.0"`
	Service string `json:"service" example:"revmura-suite"`
	Host    any    `json:"host,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// BootChecker reports whether modules finished booting.
type BootChecker interface {
	Booted() bool
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	boot BootChecker
	db   Pinger
}

// NewHealthHandler creates a new health handler. Either dependency may be nil.
func NewHealthHandler(boot BootChecker, db Pinger) *HealthHandler {
	return &HealthHandler{boot: boot, db: db}
}

// Liveness returns a simple liveness check.
//
//	@Summary		Liveness check
//	@Description	Returns OK if the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status: ok"
//	@Router			/health [get]
//	@Router			/health/live [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness reports ready once modules have booted and the database answers.
//
//	@Summary		Readiness check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status: ok"
//	@Failure		503	{object}	HealthResponse	"status: unavailable"
//	@Router			/health/ready [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.boot != nil && !h.boot.Booted() {
		httpjson.Write(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "modules not booted"})
		return
	}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			httpjson.Write(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	httpjson.Write(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Version returns a handler reporting the build version and host versions.
//
//	@Summary		Get service version
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	VersionResponse	"Version information"
//	@Router			/version [get]
func Version(version string, host any) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, VersionResponse{Version: version, Service: ServiceName, Host: host})
	}
}

// ContentTypesResponse lists what the host currently serves.
type ContentTypesResponse struct {
	Types    []memory.RegisteredType `json:"types"`
	Rewrites []memory.Rewrite        `json:"rewrites"`
}

// TypeLister lists registered entities.
type TypeLister interface {
	Types() []memory.RegisteredType
}

// RuleLister lists url rewrite rules.
type RuleLister interface {
	Rules() []memory.Rewrite
}

// ContentTypes returns a handler listing registered entities and their
// url rewrites.
//
//	@Summary		Registered content types
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	ContentTypesResponse
//	@Router			/content-types [get]
func ContentTypes(types TypeLister, rules RuleLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ContentTypesResponse{Types: []memory.RegisteredType{}, Rewrites: []memory.Rewrite{}}
		if types != nil {
			resp.Types = append(resp.Types, types.Types()...)
		}
		if rules != nil {
			resp.Rewrites = append(resp.Rewrites, rules.Rules()...)
		}
		httpjson.Write(w, http.StatusOK, resp)
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Optional metrics exporter handler (for /metrics endpoint)
	MetricsPath    string
	EnableOpenAPI  bool
	AdminHandler   http.Handler // Optional admin API handler
	Types          TypeLister
	Rules          RuleLister
	Version        string
	Host           any
	RequestTimeout time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(healthHandler *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(healthHandler, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Metrics middleware (if enabled)
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint (prefer the configured exporter handler, fall back to promhttp)
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if cfg.MetricsHandler != nil {
		r.Handle(metricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(metricsPath, promhttp.Handler())
	}

	// OpenAPI/Swagger endpoints (if enabled)
	if cfg.EnableOpenAPI {
		r.Get("/.well-known/openapi.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write([]byte(swagger.SwaggerInfo.ReadDoc()))
		})

		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	r.Get("/version", Version(cfg.Version, cfg.Host))
	r.Get("/content-types", ContentTypes(cfg.Types, cfg.Rules))

	// Admin API (if enabled)
	if cfg.AdminHandler != nil {
		r.Mount("/admin", cfg.AdminHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.Error(w, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
	})

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
// Routes are labelled by their chi pattern so path parameters do not
// multiply series.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if skipObservation(r.URL.Path) || strings.HasPrefix(r.URL.Path, "/swagger") ||
				strings.HasPrefix(r.URL.Path, "/.well-known") {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			route := metrics.RouteLabel(pattern)
			status := metrics.StatusLabel(ww.Status())

			m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if skipObservation(r.URL.Path) {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func skipObservation(path string) bool {
	return strings.HasPrefix(path, "/health") || path == "/metrics"
}
