// Package panels collects the admin panels modules register during boot.
package panels

import (
	"sync"

	"github.com/revmura/revmura-suite/ports"
)

// Registry is an insertion-ordered set of panels keyed by id.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	panels map[string]ports.Panel
}

// NewRegistry creates an empty panel registry.
func NewRegistry() *Registry {
	return &Registry{panels: make(map[string]ports.Panel)}
}

// RegisterPanel adds or replaces a panel.
func (r *Registry) RegisterPanel(p ports.Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.panels[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.panels[p.ID] = p
}

// Find returns the panel registered under id.
func (r *Registry) Find(id string) (ports.Panel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.panels[id]
	return p, ok
}

// List returns every panel in registration order.
func (r *Registry) List() []ports.Panel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.Panel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.panels[id])
	}
	return out
}

// Ensure interface compliance.
var _ ports.PanelRegistry = (*Registry)(nil)
