// Package cache keeps a last-known-good copy of the schema snapshot on disk
// so external tooling can read the current content types without opening
// the settings database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/rs/zerolog"
)

// SnapshotFile writes every committed snapshot to a JSON file.
type SnapshotFile struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// NewSnapshotFile creates a writer for path.
func NewSnapshotFile(path string, logger zerolog.Logger) *SnapshotFile {
	return &SnapshotFile{path: path, logger: logger}
}

// Attach subscribes the writer to schema commits.
func (f *SnapshotFile) Attach(bus *events.Bus) {
	bus.Subscribe("schema.committed", f.handle)
}

func (f *SnapshotFile) handle(ctx context.Context, e events.Event) error {
	snap, ok := e.Data["snapshot"].(schema.Snapshot)
	if !ok {
		return fmt.Errorf("schema.committed without snapshot payload")
	}
	return f.Write(snap)
}

// Write replaces the file atomically.
func (f *SnapshotFile) Write(snap schema.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".schema-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	f.logger.Debug().
		Str("path", f.path).
		Int("cpts", len(snap.Primaries)).
		Int("taxes", len(snap.Secondaries)).
		Msg("schema cache written")
	return nil
}

// Read loads the cached snapshot. A missing file yields the empty shell.
func (f *SnapshotFile) Read() (schema.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return schema.Empty(), nil
	}
	if err != nil {
		return schema.Snapshot{}, err
	}
	return schema.Parse(data)
}

// Path returns the cache file location.
func (f *SnapshotFile) Path() string {
	return f.path
}
