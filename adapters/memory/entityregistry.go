package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/revmura/revmura-suite/ports"
)

// RegisteredType is one entity known to the host.
type RegisteredType struct {
	Kind        string   `json:"kind"` // "primary" or "secondary"
	Slug        string   `json:"slug"`
	Label       string   `json:"label"`
	RewriteSlug string   `json:"rewrite_slug"`
	ObjectTypes []string `json:"object_types,omitempty"`
}

// EntityRegistry records registered content types and taxonomies for the
// lifetime of the process. Registrations are idempotent upserts.
type EntityRegistry struct {
	mu          sync.RWMutex
	primaries   map[string]schema.Primary
	secondaries map[string]secondaryEntry
	calls       int
}

type secondaryEntry struct {
	objectTypes []string
	spec        schema.Secondary
}

// NewEntityRegistry creates an empty entity registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{
		primaries:   make(map[string]schema.Primary),
		secondaries: make(map[string]secondaryEntry),
	}
}

// RegisterPrimary registers or replaces a content type.
func (r *EntityRegistry) RegisterPrimary(ctx context.Context, key string, spec schema.Primary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.primaries[key] = spec
	r.calls++
	return nil
}

// RegisterSecondary registers or replaces a taxonomy.
func (r *EntityRegistry) RegisterSecondary(ctx context.Context, slug string, objectKeys []string, spec schema.Secondary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.secondaries[slug] = secondaryEntry{
		objectTypes: append([]string(nil), objectKeys...),
		spec:        spec,
	}
	r.calls++
	return nil
}

// Primary returns a registered content type.
func (r *EntityRegistry) Primary(key string) (schema.Primary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.primaries[key]
	return p, ok
}

// Types lists every registration, primaries first, each group sorted by slug.
func (r *EntityRegistry) Types() []RegisteredType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredType, 0, len(r.primaries)+len(r.secondaries))
	for key, p := range r.primaries {
		out = append(out, RegisteredType{Kind: "primary", Slug: key, Label: p.Label, RewriteSlug: p.Rewrite.Slug})
	}
	for slug, e := range r.secondaries {
		out = append(out, RegisteredType{
			Kind:        "secondary",
			Slug:        slug,
			Label:       e.spec.Label,
			RewriteSlug: e.spec.Rewrite.Slug,
			ObjectTypes: append([]string(nil), e.objectTypes...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == "primary"
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// Calls returns the number of registration calls (for testing).
func (r *EntityRegistry) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.calls
}

// Ensure interface compliance.
var _ ports.EntityRegistrar = (*EntityRegistry)(nil)
