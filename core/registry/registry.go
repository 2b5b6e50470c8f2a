// Package registry keeps the catalog of compiled-in modules.
// The catalog preserves registration order and holds no enabled-state
// knowledge; that belongs to the lifecycle manager.
package registry

import (
	"sync"

	"github.com/revmura/revmura-suite/domain/module"
)

// Registry is an insertion-ordered catalog of modules keyed by id.
type Registry struct {
	mu sync.RWMutex

	// ids in first-registration order
	order []string

	// modules by id
	modules map[string]module.Module
}

// New creates an empty registry.
func New(mods ...module.Module) *Registry {
	r := &Registry{
		modules: make(map[string]module.Module),
	}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register inserts a module, replacing any module already registered under
// the same id. A replaced module keeps its original position.
func (r *Registry) Register(m module.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	if _, exists := r.modules[id]; !exists {
		r.order = append(r.order, id)
	}
	r.modules[id] = m
}

// Find returns the module registered under id.
func (r *Registry) Find(id string) (module.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	return m, ok
}

// All returns every module in registration order.
func (r *Registry) All() []module.Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]module.Module, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modules[id])
	}
	return out
}

// Descriptors returns the descriptor of every module in registration order.
func (r *Registry) Descriptors() []module.Descriptor {
	mods := r.All()
	out := make([]module.Descriptor, len(mods))
	for i, m := range mods {
		out[i] = module.Describe(m)
	}
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
