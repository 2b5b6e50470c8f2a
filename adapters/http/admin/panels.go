package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/pkg/httpjson"
)

// PanelResponse describes one module panel.
type PanelResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// ListPanels returns the panels registered by booted modules.
//
//	@Summary		List panels
//	@Tags			Admin - Panels
//	@Produce		json
//	@Success		200	{object}	map[string][]PanelResponse
//	@Security		AdminAuth
//	@Router			/admin/panels [get]
func (h *Handler) ListPanels(w http.ResponseWriter, r *http.Request) {
	out := []PanelResponse{}
	if h.panels != nil {
		for _, p := range h.panels.List() {
			if !h.panelActive(p.ID) {
				continue
			}
			out = append(out, PanelResponse{ID: p.ID, Label: p.Label, Path: "/admin/panels/" + p.ID + "/"})
		}
	}
	httpjson.Write(w, http.StatusOK, map[string][]PanelResponse{"panels": out})
}

// ServePanel dispatches to a module panel. The panel sees the remainder of
// the path after /panels/{id} and routes it independently. Requests other
// than GET and HEAD hold the admin mutation lock.
func (h *Handler) ServePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.panels == nil {
		httpjson.Error(w, http.StatusNotFound, "panel_not_found", "Panel not found")
		return
	}
	p, ok := h.panels.Find(id)
	if !ok || p.Handler == nil || !h.panelActive(p.ID) {
		httpjson.Error(w, http.StatusNotFound, "panel_not_found", "Panel not found")
		return
	}

	rest := "/" + chi.URLParam(r, "*")

	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, nil)
	pr := r.Clone(ctx)
	pr.URL.Path = rest
	pr.URL.RawPath = ""

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	p.Handler.ServeHTTP(w, pr)
}

// panelActive hides panels of modules disabled since boot.
func (h *Handler) panelActive(id string) bool {
	if h.lifecycle == nil {
		return true
	}
	return h.lifecycle.State(id) == module.StateActive
}
