// Package admin provides HTTP handlers for the Admin API.
package admin

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/adapters/auth"
	"github.com/revmura/revmura-suite/adapters/metrics"
	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/core/panels"
	"github.com/revmura/revmura-suite/pkg/httpjson"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// SessionCookie is the name of the admin session cookie.
const SessionCookie = "revmura_session"

// Credential is an API key an operator may authenticate with.
type Credential struct {
	Name string
	Role auth.Role
	Hash []byte
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler provides admin API endpoints.
type Handler struct {
	lifecycle    *app.LifecycleManager
	settings     ports.SettingsStore
	panels       *panels.Registry
	notices      *events.NoticeBoard
	tokens       *auth.TokenService
	hasher       ports.Hasher
	metrics      *metrics.Collector
	db           Pinger
	clock        ports.Clock
	version      string
	cookieSecure bool
	logger       zerolog.Logger

	// mu serializes mutations of the enabled set, the ledger and settings.
	mu sync.Mutex

	credMu      sync.RWMutex
	credentials []Credential

	revokedMu sync.Mutex
	revoked   map[string]time.Time
}

// Deps contains dependencies for the admin handler.
type Deps struct {
	Lifecycle    *app.LifecycleManager
	Settings     ports.SettingsStore
	Panels       *panels.Registry
	Notices      *events.NoticeBoard
	Tokens       *auth.TokenService
	Hasher       ports.Hasher
	Credentials  []Credential
	Metrics      *metrics.Collector
	DB           Pinger
	Clock        ports.Clock
	Version      string
	CookieSecure bool
	Logger       zerolog.Logger
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		lifecycle:    deps.Lifecycle,
		settings:     deps.Settings,
		panels:       deps.Panels,
		notices:      deps.Notices,
		tokens:       deps.Tokens,
		hasher:       deps.Hasher,
		credentials:  deps.Credentials,
		metrics:      deps.Metrics,
		db:           deps.DB,
		clock:        deps.Clock,
		version:      deps.Version,
		cookieSecure: deps.CookieSecure,
		logger:       deps.Logger,
		revoked:      make(map[string]time.Time),
	}
}

// SetCredentials replaces the accepted API keys. Issued sessions stay valid
// until they expire.
func (h *Handler) SetCredentials(creds []Credential) {
	h.credMu.Lock()
	defer h.credMu.Unlock()
	h.credentials = append([]Credential(nil), creds...)
}

// Router returns the admin API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Public endpoints (no auth required)
	r.Post("/login", h.Login)

	// Protected endpoints (require auth)
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)

		// Modules
		r.Get("/modules", h.ListModules)
		r.Put("/modules/enabled", h.SetEnabled)
		r.Delete("/modules/{id}/data", h.DeleteModuleData)

		// Diagnostics
		r.Get("/notices", h.ListNotices)
		r.Delete("/notices", h.ClearNotices)
		r.Get("/doctor", h.Doctor)

		// Settings
		r.Get("/settings", h.ListSettings)
		r.Get("/settings/{key}", h.GetSetting)
		r.Put("/settings/{key}", h.PutSetting)
		r.Delete("/settings/{key}", h.DeleteSetting)

		// Module panels
		r.Get("/panels", h.ListPanels)
		r.HandleFunc("/panels/{id}", h.ServePanel)
		r.HandleFunc("/panels/{id}/*", h.ServePanel)
	})

	return r
}

// -----------------------------------------------------------------------------
// Authentication
// -----------------------------------------------------------------------------

// LoginRequest represents a login request.
type LoginRequest struct {
	APIKey string `json:"api_key"`
}

// ActorResponse describes the authenticated actor.
type ActorResponse struct {
	Name string    `json:"name"`
	Role auth.Role `json:"role"`
	Via  string    `json:"via"`
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expires_at"`
	Actor     ActorResponse `json:"actor"`
}

// Login exchanges an API key for a session token.
//
//	@Summary		Admin login
//	@Description	Authenticate with an API key and receive a session token (also set as a cookie)
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest				true	"Login credentials"
//	@Success		200		{object}	LoginResponse				"Login successful"
//	@Failure		400		{object}	httpjson.ErrorResponse	"Invalid request"
//	@Failure		401		{object}	httpjson.ErrorResponse	"Invalid credentials"
//	@Router			/admin/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.APIKey == "" {
		httpjson.Error(w, http.StatusBadRequest, "missing_credentials", "API key required")
		return
	}

	cred, ok := h.authenticateByAPIKey(req.APIKey)
	if !ok {
		h.authFailed("invalid_key")
		httpjson.Error(w, http.StatusUnauthorized, "invalid_credentials", "Invalid API key")
		return
	}

	token, expiresAt, err := h.tokens.Issue(cred.Name, cred.Role)
	if err != nil {
		h.logger.Error().Err(err).Msg("issue session token")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info().Str("actor", cred.Name).Str("role", string(cred.Role)).Msg("admin login")
	httpjson.Write(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Actor:     ActorResponse{Name: cred.Name, Role: cred.Role, Via: "session"},
	})
}

// Logout ends an admin session.
//
//	@Summary		Admin logout
//	@Description	Revoke the current session token and clear the cookie
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{object}	map[string]string	"Logged out"
//	@Security		AdminAuth
//	@Router			/admin/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := r.Context().Value(ctxClaimsKey).(*auth.Claims); ok && claims.ExpiresAt != nil {
		h.revoke(claims.ID, claims.ExpiresAt.Time)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me returns the authenticated actor.
//
//	@Summary		Current actor
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{object}	ActorResponse
//	@Security		AdminAuth
//	@Router			/admin/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, _ := auth.ActorFrom(r.Context())
	httpjson.Write(w, http.StatusOK, ActorResponse{Name: a.Name, Role: a.Role, Via: a.Via})
}

// AuthMiddleware validates admin authentication and stores the actor in the
// request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Try session cookie first
		if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
			if claims, ok := h.verifySession(cookie.Value); ok {
				next.ServeHTTP(w, r.WithContext(sessionContext(r.Context(), claims)))
				return
			}
		}

		// Try Authorization header (Bearer session token or API key)
		if header := r.Header.Get("Authorization"); header != "" {
			token := strings.TrimPrefix(header, "Bearer ")

			if claims, ok := h.verifySession(token); ok {
				next.ServeHTTP(w, r.WithContext(sessionContext(r.Context(), claims)))
				return
			}
			if cred, ok := h.authenticateByAPIKey(token); ok {
				next.ServeHTTP(w, r.WithContext(keyContext(r.Context(), cred)))
				return
			}
		}

		// Try X-API-Key header
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if cred, ok := h.authenticateByAPIKey(apiKey); ok {
				next.ServeHTTP(w, r.WithContext(keyContext(r.Context(), cred)))
				return
			}
		}

		if hasCredentials(r) {
			h.authFailed("invalid")
		} else {
			h.authFailed("missing")
		}
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "Valid session or API key required")
	})
}

func (h *Handler) authenticateByAPIKey(apiKey string) (Credential, bool) {
	if h.hasher == nil {
		return Credential{}, false
	}
	h.credMu.RLock()
	creds := h.credentials
	h.credMu.RUnlock()

	for _, c := range creds {
		if len(c.Hash) > 0 && h.hasher.Compare(c.Hash, apiKey) {
			return c, true
		}
	}
	return Credential{}, false
}

func (h *Handler) verifySession(token string) (*auth.Claims, bool) {
	if h.tokens == nil {
		return nil, false
	}
	claims, err := h.tokens.Verify(token)
	if err != nil {
		return nil, false
	}
	if h.isRevoked(claims.ID) {
		return nil, false
	}
	return claims, true
}

func (h *Handler) revoke(id string, until time.Time) {
	h.revokedMu.Lock()
	defer h.revokedMu.Unlock()

	now := h.now()
	for k, exp := range h.revoked {
		if now.After(exp) {
			delete(h.revoked, k)
		}
	}
	h.revoked[id] = until
}

func (h *Handler) isRevoked(id string) bool {
	h.revokedMu.Lock()
	defer h.revokedMu.Unlock()
	_, ok := h.revoked[id]
	return ok
}

func (h *Handler) now() time.Time {
	if h.clock != nil {
		return h.clock.Now()
	}
	return time.Now()
}

func (h *Handler) authFailed(reason string) {
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}

func hasCredentials(r *http.Request) bool {
	if _, err := r.Cookie(SessionCookie); err == nil {
		return true
	}
	return r.Header.Get("Authorization") != "" || r.Header.Get("X-API-Key") != ""
}

// Context keys
type ctxKey string

const ctxClaimsKey ctxKey = "claims"

func sessionContext(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxClaimsKey, claims)
	return auth.WithActor(ctx, auth.Actor{Name: claims.Actor, Role: claims.Role, Via: "session"})
}

func keyContext(ctx context.Context, cred Credential) context.Context {
	return auth.WithActor(ctx, auth.Actor{Name: cred.Name, Role: cred.Role, Via: "api_key"})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// requireOperator rejects viewers before a mutation reaches a service.
func requireOperator(w http.ResponseWriter, r *http.Request) bool {
	if (auth.ContextAuthorizer{}).MayAdminister(r.Context()) {
		return true
	}
	httpjson.Error(w, http.StatusForbidden, "forbidden", "Operator role required")
	return false
}
