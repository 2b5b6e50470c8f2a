// Package multilang reports the state of the multisite translation bridge:
// its mapping tables, the configured language pair and the mappings that
// touch the current site.
package multilang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/domain/version"
	"github.com/revmura/revmura-suite/modules"
	"github.com/revmura/revmura-suite/pkg/httpjson"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// ID is the module slug.
const ID = "multilang"

// Settings is the network-wide language pair.
type Settings struct {
	SourceSiteID   int    `json:"source_site_id"`
	TargetSiteID   int    `json:"target_site_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// DefaultSettings returns the settings used until an operator saves some.
func DefaultSettings() Settings {
	return Settings{SourceLanguage: "ar", TargetLanguage: "en"}
}

// Pair renders the configured direction, e.g. "Site 1 (ar) → Site 2 (en)".
func (s Settings) Pair() string {
	return fmt.Sprintf("Site %d (%s) → Site %d (%s)",
		s.SourceSiteID, s.SourceLanguage, s.TargetSiteID, s.TargetLanguage)
}

// Validate checks an operator-supplied settings value.
func (s Settings) Validate() error {
	if s.SourceSiteID < 0 || s.TargetSiteID < 0 {
		return errors.New("site ids must not be negative")
	}
	if strings.TrimSpace(s.SourceLanguage) == "" || strings.TrimSpace(s.TargetLanguage) == "" {
		return errors.New("source and target language are required")
	}
	return nil
}

// Site identifies the site this process serves.
type Site struct {
	ID       int
	Language string
}

// Status is the panel body.
type Status struct {
	TablesReady   bool                `json:"tables_ready"`
	MissingTables []string            `json:"missing_tables"`
	SiteID        int                 `json:"site_id"`
	SiteLanguage  string              `json:"site_language"`
	Settings      Settings            `json:"settings"`
	Pair          string              `json:"pair"`
	Mappings      ports.MappingCounts `json:"mappings"`
	Shortcode     string              `json:"shortcode"`
}

// Deps contains dependencies for the multilang module.
type Deps struct {
	Panels   ports.PanelRegistry
	Store    ports.ConfigStore
	Mappings ports.MappingStats
	Auth     ports.Authorizer
	Site     Site
	Logger   zerolog.Logger
}

// Module is the multilang status module.
type Module struct {
	panels   ports.PanelRegistry
	store    ports.ConfigStore
	mappings ports.MappingStats
	auth     ports.Authorizer
	site     Site
	logger   zerolog.Logger
}

// New creates the multilang module.
func New(deps Deps) *Module {
	return &Module{
		panels:   deps.Panels,
		store:    deps.Store,
		mappings: deps.Mappings,
		auth:     deps.Auth,
		site:     deps.Site,
		logger:   deps.Logger.With().Str("module", ID).Logger(),
	}
}

func (m *Module) ID() string                         { return ID }
func (m *Module) Label() string                      { return "Multilang" }
func (m *Module) Version() string                    { return "1.0.0" }
func (m *Module) Requirements() version.Requirements { return modules.Requirements }

// Boot registers the status panel.
func (m *Module) Boot(ctx context.Context) error {
	if m.panels == nil {
		return nil
	}
	m.panels.RegisterPanel(ports.Panel{ID: ID, Label: m.Label(), Handler: m.Router()})
	return nil
}

func (m *Module) OnEnable(ctx context.Context) error  { return nil }
func (m *Module) OnDisable(ctx context.Context) error { return nil }

// Uninstall leaves the mapping tables and settings in place; they belong to
// the translation bridge, which outlives this status module.
func (m *Module) Uninstall(ctx context.Context) error { return nil }

// Router returns the panel routes.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", m.handleStatus)
	r.Get("/settings", m.handleGetSettings)
	r.Put("/settings", m.handlePutSettings)
	return r
}

// Status collects the current bridge state.
func (m *Module) Status(ctx context.Context) (Status, error) {
	st := Status{
		SiteID:        m.site.ID,
		SiteLanguage:  m.site.Language,
		MissingTables: []string{},
		Shortcode:     "[language_switcher]",
	}
	if st.SiteLanguage == "" {
		st.SiteLanguage = "-"
	}

	cfg, err := m.Settings(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Settings = cfg
	st.Pair = cfg.Pair()

	if m.mappings == nil {
		return st, nil
	}
	missing, err := m.mappings.Missing(ctx)
	if err != nil {
		return Status{}, err
	}
	if missing != nil {
		st.MissingTables = missing
	}
	st.TablesReady = len(missing) == 0

	st.Mappings, err = m.mappings.Counts(ctx, m.site.ID)
	if err != nil {
		return Status{}, err
	}
	return st, nil
}

// Settings returns the saved settings, or the defaults when none are stored
// or the stored value is unreadable.
func (m *Module) Settings(ctx context.Context) (Settings, error) {
	cfg := DefaultSettings()
	if m.store == nil {
		return cfg, nil
	}
	if _, err := m.store.Load(ctx, settings.KeyMultilang, &cfg); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
			m.logger.Warn().Err(err).Msg("stored multilang settings unreadable, using defaults")
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("load multilang settings: %w", err)
	}
	return cfg, nil
}

// SaveSettings validates and persists cfg.
func (m *Module) SaveSettings(ctx context.Context, cfg Settings) error {
	if m.auth != nil && !m.auth.MayAdminister(ctx) {
		return module.ErrUnauthorized
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.store.Save(ctx, settings.KeyMultilang, cfg); err != nil {
		return fmt.Errorf("save multilang settings: %w", err)
	}
	m.logger.Info().Str("pair", cfg.Pair()).Msg("multilang settings saved")
	return nil
}

func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := m.Status(r.Context())
	if err != nil {
		m.logger.Error().Err(err).Msg("multilang status failed")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to read multilang status")
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

func (m *Module) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := m.Settings(r.Context())
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to read settings")
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}

func (m *Module) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	cfg := DefaultSettings()
	if err := httpjson.Decode(r, &cfg); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if err := m.SaveSettings(r.Context(), cfg); err != nil {
		switch {
		case errors.Is(err, module.ErrUnauthorized):
			httpjson.Error(w, http.StatusForbidden, "forbidden", err.Error())
		case cfg.Validate() != nil:
			httpjson.Error(w, http.StatusBadRequest, "invalid_settings", err.Error())
		default:
			httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to save settings")
		}
		return
	}
	httpjson.Write(w, http.StatusOK, cfg)
}
