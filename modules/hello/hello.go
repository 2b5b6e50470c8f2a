// Package hello is a demo module that contributes a single admin panel.
package hello

import (
	"context"
	"net/http"

	"github.com/revmura/revmura-suite/domain/version"
	"github.com/revmura/revmura-suite/modules"
	"github.com/revmura/revmura-suite/pkg/httpjson"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// ID is the module slug.
const ID = "hello"

// Panel is the body served by the hello panel.
type Panel struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Module is the hello demo module.
type Module struct {
	panels ports.PanelRegistry
	logger zerolog.Logger
}

// New creates the hello module.
func New(panels ports.PanelRegistry, logger zerolog.Logger) *Module {
	return &Module{panels: panels, logger: logger.With().Str("module", ID).Logger()}
}

func (m *Module) ID() string                         { return ID }
func (m *Module) Label() string                      { return "Hello" }
func (m *Module) Version() string                    { return "0.1.0" }
func (m *Module) Requirements() version.Requirements { return modules.Requirements }

// Boot registers the demo panel.
func (m *Module) Boot(ctx context.Context) error {
	if m.panels == nil {
		return nil
	}
	m.panels.RegisterPanel(ports.Panel{
		ID:      ID,
		Label:   m.Label(),
		Handler: http.HandlerFunc(m.servePanel),
	})
	m.logger.Debug().Msg("panel registered")
	return nil
}

func (m *Module) OnEnable(ctx context.Context) error  { return nil }
func (m *Module) OnDisable(ctx context.Context) error { return nil }

// Uninstall is a no-op; the module owns no data.
func (m *Module) Uninstall(ctx context.Context) error { return nil }

func (m *Module) servePanel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpjson.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET is supported")
		return
	}
	httpjson.Write(w, http.StatusOK, Panel{
		Title:   "Hello Module",
		Message: "This is a demo module. You can remove it later.",
	})
}
