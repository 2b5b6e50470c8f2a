package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// EventSchemaCommitted carries every newly persisted snapshot.
const EventSchemaCommitted = "schema.committed"

// SchemaDeps contains the collaborators of the schema store.
type SchemaDeps struct {
	Store     ports.ConfigStore
	Registrar ports.EntityRegistrar
	Routes    ports.RouteRefresher
	Events    ports.EventSink
	Auth      ports.Authorizer
	Logger    zerolog.Logger
}

// SchemaStore persists and mutates the content-type schema snapshot.
// Every mutation writes the whole snapshot.
type SchemaStore struct {
	store     ports.ConfigStore
	registrar ports.EntityRegistrar
	routes    ports.RouteRefresher
	events    ports.EventSink
	auth      ports.Authorizer
	logger    zerolog.Logger
}

// ApplyResult lists the entities registered by Apply.
type ApplyResult struct {
	Primaries   []string `json:"cpts"`
	Secondaries []string `json:"taxes"`
}

// NewSchemaStore creates a schema store.
func NewSchemaStore(deps SchemaDeps) *SchemaStore {
	return &SchemaStore{
		store:     deps.Store,
		registrar: deps.Registrar,
		routes:    deps.Routes,
		events:    deps.Events,
		auth:      deps.Auth,
		logger:    deps.Logger,
	}
}

// Current returns the persisted snapshot, or the empty shell.
func (s *SchemaStore) Current(ctx context.Context) (schema.Snapshot, error) {
	snap := schema.Empty()
	if _, err := s.store.Load(ctx, settings.KeySchema, &snap); err != nil {
		if isDecodeError(err) || errors.Is(err, schema.ErrInvalidSnapshot) {
			s.logger.Warn().Err(err).Msg("stored schema unreadable, using empty schema")
			return schema.Empty(), nil
		}
		return schema.Empty(), fmt.Errorf("load schema: %w", err)
	}
	return snap, nil
}

// Apply replaces the snapshot with the decoded candidate, then registers
// every entity and refreshes routes. Missing or malformed structure is
// replaced by defaults; only a document that is not an object fails.
func (s *SchemaStore) Apply(ctx context.Context, raw []byte) (ApplyResult, error) {
	if !s.auth.MayAdminister(ctx) {
		return ApplyResult{}, module.ErrUnauthorized
	}

	snap, err := schema.Parse(raw)
	if err != nil {
		return ApplyResult{}, err
	}
	return s.ApplySnapshot(ctx, snap)
}

// ApplyMap is Apply for already decoded data, such as a YAML file.
func (s *SchemaStore) ApplyMap(ctx context.Context, m map[string]any) (ApplyResult, error) {
	return s.ApplySnapshot(ctx, schema.FromMap(m))
}

// ApplySnapshot persists snap wholesale and registers its entities.
func (s *SchemaStore) ApplySnapshot(ctx context.Context, snap schema.Snapshot) (ApplyResult, error) {
	if !s.auth.MayAdminister(ctx) {
		return ApplyResult{}, module.ErrUnauthorized
	}

	if err := s.commit(ctx, snap); err != nil {
		return ApplyResult{}, err
	}

	result := s.register(ctx, snap)
	s.refresh(ctx)

	s.logger.Info().
		Strs("cpts", result.Primaries).
		Strs("taxes", result.Secondaries).
		Msg("schema applied")
	return result, nil
}

// ExportOne returns the primary entity key with its linked secondaries.
func (s *SchemaStore) ExportOne(ctx context.Context, key string) (schema.Snapshot, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return schema.Empty(), err
	}
	return schema.ExportOne(snap, key), nil
}

// DeletePrimary removes a primary entity and cascades through the
// secondaries. The result is persisted even when key was never present.
func (s *SchemaStore) DeletePrimary(ctx context.Context, key string) (schema.Snapshot, error) {
	if !s.auth.MayAdminister(ctx) {
		return schema.Snapshot{}, module.ErrUnauthorized
	}
	if schema.NormalizeKey(key) == "" {
		return schema.Snapshot{}, schema.ErrInvalidKey
	}

	current, err := s.Current(ctx)
	if err != nil {
		return schema.Snapshot{}, err
	}

	next := schema.DeletePrimary(current, key)
	if err := s.commit(ctx, next); err != nil {
		return schema.Snapshot{}, err
	}
	s.refresh(ctx)

	s.logger.Info().
		Str("key", schema.NormalizeKey(key)).
		Int("cpts", len(next.Primaries)).
		Int("taxes", len(next.Secondaries)).
		Msg("schema primary deleted")
	return next, nil
}

// UninstallAll resets the snapshot to the empty shell.
func (s *SchemaStore) UninstallAll(ctx context.Context) error {
	if err := s.commit(ctx, schema.Empty()); err != nil {
		return err
	}
	s.refresh(ctx)
	s.logger.Info().Msg("schema cleared")
	return nil
}

// RegisterSaved registers the persisted snapshot with the host without
// writing anything.
func (s *SchemaStore) RegisterSaved(ctx context.Context) (ApplyResult, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return ApplyResult{}, err
	}
	return s.register(ctx, snap), nil
}

func (s *SchemaStore) commit(ctx context.Context, snap schema.Snapshot) error {
	if snap.SchemaVersion == "" {
		snap.SchemaVersion = schema.DefaultVersion
	}
	if snap.Primaries == nil {
		snap.Primaries = map[string]schema.Primary{}
	}
	if snap.Secondaries == nil {
		snap.Secondaries = []schema.Secondary{}
	}

	if err := s.store.Save(ctx, settings.KeySchema, snap); err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	if s.events != nil {
		s.events.Emit(ctx, EventSchemaCommitted, map[string]any{"snapshot": snap.Clone()})
	}
	return nil
}

// register is best-effort: an entity the host rejects is logged and left out
// of the result.
func (s *SchemaStore) register(ctx context.Context, snap schema.Snapshot) ApplyResult {
	result := ApplyResult{Primaries: []string{}, Secondaries: []string{}}
	if s.registrar == nil {
		return result
	}

	primaries, secondaries := schema.Registrations(snap)
	for _, p := range primaries {
		if err := s.registrar.RegisterPrimary(ctx, p.Key, p.Spec); err != nil {
			s.logger.Warn().Err(err).Str("cpt", p.Key).Msg("content type registration failed")
			continue
		}
		result.Primaries = append(result.Primaries, p.Key)
	}
	for _, sec := range secondaries {
		if err := s.registrar.RegisterSecondary(ctx, sec.Slug, sec.ObjectTypes, sec.Spec); err != nil {
			s.logger.Warn().Err(err).Str("tax", sec.Slug).Msg("taxonomy registration failed")
			continue
		}
		result.Secondaries = append(result.Secondaries, sec.Slug)
	}
	return result
}

func (s *SchemaStore) refresh(ctx context.Context) {
	if s.routes == nil {
		return
	}
	if err := s.routes.RefreshRoutes(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("route refresh failed")
	}
}

// MarshalSnapshot renders a snapshot as indented JSON for export.
func MarshalSnapshot(snap schema.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}
