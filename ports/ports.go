// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/revmura/revmura-suite/domain/settings"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher provides password/key hashing.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Host Ports
// -----------------------------------------------------------------------------

// ConfigStore persists arbitrary nested values by key.
type ConfigStore interface {
	// Load decodes the value stored under key into dst.
	// When the key is absent dst is left untouched and found is false,
	// so a pre-initialized dst acts as the default.
	Load(ctx context.Context, key string, dst any) (found bool, err error)

	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, value any) error
}

// SettingsStore is the raw view of persisted settings used by operators.
type SettingsStore interface {
	ConfigStore

	// List returns every stored setting.
	List(ctx context.Context) ([]settings.Setting, error)

	// Delete removes a setting.
	Delete(ctx context.Context, key string) error
}

// EntityRegistrar registers schema entities with the live host.
// Repeated identical calls must be harmless.
type EntityRegistrar interface {
	RegisterPrimary(ctx context.Context, key string, spec schema.Primary) error
	RegisterSecondary(ctx context.Context, slug string, objectKeys []string, spec schema.Secondary) error
}

// EventSink receives notifications and lifecycle diagnostics.
type EventSink interface {
	Emit(ctx context.Context, name string, payload map[string]any)
}

// Authorizer decides whether the actor in ctx may administer the host.
type Authorizer interface {
	MayAdminister(ctx context.Context) bool
}

// RouteRefresher rebuilds the host's url routing after path-bearing
// entities change.
type RouteRefresher interface {
	RefreshRoutes(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Translation Mappings
// -----------------------------------------------------------------------------

// MappingCounts are the translation mappings touching one site.
type MappingCounts struct {
	Posts int `json:"posts"`
	Terms int `json:"terms"`
	Media int `json:"media"`
}

// MappingStats reads the translation mapping tables.
type MappingStats interface {
	// Missing lists the mapping tables that do not exist.
	Missing(ctx context.Context) ([]string, error)

	// Counts returns the mappings whose source or target is siteID.
	Counts(ctx context.Context, siteID int) (MappingCounts, error)
}

// -----------------------------------------------------------------------------
// Admin Panels
// -----------------------------------------------------------------------------

// Panel is an admin screen contributed by a module.
type Panel struct {
	ID      string
	Label   string
	Handler http.Handler
}

// PanelRegistry collects panels registered by modules during boot.
type PanelRegistry interface {
	RegisterPanel(p Panel)
}
