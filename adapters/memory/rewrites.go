package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/revmura/revmura-suite/ports"
)

// Rewrite maps a public url prefix to the entity serving it.
type Rewrite struct {
	Prefix string `json:"prefix"`
	Kind   string `json:"kind"`
	Slug   string `json:"slug"`
}

// RewriteTable is the public routing table derived from registered
// entities. It only changes when RefreshRoutes is called.
type RewriteTable struct {
	source *EntityRegistry

	mu      sync.RWMutex
	rules   []Rewrite
	flushes int
}

// NewRewriteTable creates a table fed by source.
func NewRewriteTable(source *EntityRegistry) *RewriteTable {
	return &RewriteTable{source: source}
}

// RefreshRoutes rebuilds the table from the current registrations.
// Longer prefixes sort first so lookups match the most specific rule.
func (t *RewriteTable) RefreshRoutes(ctx context.Context) error {
	types := t.source.Types()

	seen := make(map[string]bool, len(types))
	rules := make([]Rewrite, 0, len(types))
	for _, rt := range types {
		prefix := "/" + rt.RewriteSlug
		if rt.RewriteSlug == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		rules = append(rules, Rewrite{Prefix: prefix, Kind: rt.Kind, Slug: rt.Slug})
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Prefix < rules[j].Prefix
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = rules
	t.flushes++
	return nil
}

// Rules returns the current rules.
func (t *RewriteTable) Rules() []Rewrite {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Rewrite{}, t.rules...)
}

// Match returns the rule whose prefix owns path.
func (t *RewriteTable) Match(path string) (Rewrite, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.rules {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Rewrite{}, false
}

// Flushes returns how many times the table was rebuilt.
func (t *RewriteTable) Flushes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flushes
}

// Ensure interface compliance.
var _ ports.RouteRefresher = (*RewriteTable)(nil)
