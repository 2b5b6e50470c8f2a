// Package cpt manages the custom content-type and taxonomy schema: it
// registers the saved snapshot on boot and serves the admin panel that
// applies, exports and deletes schema entries.
package cpt

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/revmura/revmura-suite/domain/version"
	"github.com/revmura/revmura-suite/modules"
	"github.com/revmura/revmura-suite/pkg/httpjson"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// ID is the module slug.
const ID = "cpt"

// maxSchemaBody bounds an apply request body.
const maxSchemaBody = 1 << 20

// ApplyResponse is returned by the apply endpoint.
type ApplyResponse struct {
	OK         bool            `json:"ok"`
	Registered app.ApplyResult `json:"registered"`
	Flushed    bool            `json:"flushed"`
}

// DeleteResponse is returned by the delete endpoint.
type DeleteResponse struct {
	OK      bool            `json:"ok"`
	Deleted string          `json:"deleted"`
	Schema  schema.Snapshot `json:"schema"`
}

// Module is the CPT & Tax module.
type Module struct {
	panels  ports.PanelRegistry
	schemas *app.SchemaStore
	logger  zerolog.Logger
}

// New creates the cpt module around the schema store it owns.
func New(panels ports.PanelRegistry, schemas *app.SchemaStore, logger zerolog.Logger) *Module {
	return &Module{
		panels:  panels,
		schemas: schemas,
		logger:  logger.With().Str("module", ID).Logger(),
	}
}

func (m *Module) ID() string                         { return ID }
func (m *Module) Label() string                      { return "CPT & Tax" }
func (m *Module) Version() string                    { return "1.0.0" }
func (m *Module) Requirements() version.Requirements { return modules.Requirements }

// Boot registers the saved schema with the host and mounts the panel.
func (m *Module) Boot(ctx context.Context) error {
	result, err := m.schemas.RegisterSaved(ctx)
	if err != nil {
		return err
	}
	m.logger.Info().
		Int("cpts", len(result.Primaries)).
		Int("taxes", len(result.Secondaries)).
		Msg("saved schema registered")

	if m.panels != nil {
		m.panels.RegisterPanel(ports.Panel{ID: ID, Label: m.Label(), Handler: m.Router()})
	}
	return nil
}

func (m *Module) OnEnable(ctx context.Context) error  { return nil }
func (m *Module) OnDisable(ctx context.Context) error { return nil }

// Uninstall resets the stored schema to the empty shell.
func (m *Module) Uninstall(ctx context.Context) error {
	return m.schemas.UninstallAll(ctx)
}

// Router returns the panel routes.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/schema", m.handleSchema)
	r.Post("/apply", m.handleApply)
	r.Get("/export/{key}", m.handleExport)
	r.Delete("/primary/{key}", m.handleDelete)
	return r
}

func (m *Module) handleSchema(w http.ResponseWriter, r *http.Request) {
	snap, err := m.schemas.Current(r.Context())
	if err != nil {
		m.writeStoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, snap)
}

func (m *Module) handleApply(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSchemaBody))
	if err != nil {
		httpjson.Error(w, http.StatusRequestEntityTooLarge, "body_too_large", "Schema document is too large")
		return
	}

	result, err := m.schemas.Apply(r.Context(), raw)
	if err != nil {
		m.writeStoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, ApplyResponse{OK: true, Registered: result, Flushed: true})
}

func (m *Module) handleExport(w http.ResponseWriter, r *http.Request) {
	key := schema.NormalizeKey(chi.URLParam(r, "key"))
	if key == "" {
		httpjson.Error(w, http.StatusBadRequest, "invalid_key", "Missing CPT slug")
		return
	}

	snap, err := m.schemas.ExportOne(r.Context(), key)
	if err != nil {
		m.writeStoreError(w, err)
		return
	}
	if err := httpjson.Attachment(w, "cpt-"+key+".json", snap); err != nil {
		m.logger.Error().Err(err).Str("cpt", key).Msg("export failed")
	}
}

func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	snap, err := m.schemas.DeletePrimary(r.Context(), key)
	if err != nil {
		m.writeStoreError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, DeleteResponse{OK: true, Deleted: schema.NormalizeKey(key), Schema: snap})
}

func (m *Module) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, module.ErrUnauthorized):
		httpjson.Error(w, http.StatusForbidden, "forbidden", "Access denied")
	case errors.Is(err, schema.ErrInvalidSnapshot):
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", err.Error())
	case errors.Is(err, schema.ErrInvalidKey):
		httpjson.Error(w, http.StatusBadRequest, "invalid_key", "Missing CPT slug")
	default:
		m.logger.Error().Err(err).Msg("schema operation failed")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Schema operation failed")
	}
}
