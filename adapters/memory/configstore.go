// Package memory provides in-memory implementations for testing and for
// hosts that do not need persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/ports"
)

// ConfigStore is an in-memory implementation of ports.SettingsStore.
// Values are kept JSON-encoded so callers observe the same copy semantics
// as a persistent store.
type ConfigStore struct {
	mu      sync.RWMutex
	values  map[string]settings.Setting
	saves   map[string]int
	saveErr error
}

// NewConfigStore creates a new in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		values: make(map[string]settings.Setting),
		saves:  make(map[string]int),
	}
}

// Load decodes the value stored under key into dst.
func (s *ConfigStore) Load(ctx context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	setting, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := setting.Decode(dst); err != nil {
		return true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Save replaces the value under key.
func (s *ConfigStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.values[key] = settings.Setting{Key: key, Value: string(data), UpdatedAt: time.Now().UTC()}
	s.saves[key]++
	return nil
}

// List returns every stored setting ordered by key.
func (s *ConfigStore) List(ctx context.Context) ([]settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]settings.Setting, 0, len(s.values))
	for _, v := range s.values {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Delete removes a setting.
func (s *ConfigStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Raw returns the stored JSON for key (for testing).
func (s *ConfigStore) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v.Value, ok
}

// Saves returns how many times key was written (for testing).
func (s *ConfigStore) Saves(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[key]
}

// FailSaves makes every subsequent Save return err; nil restores normal
// behavior (for testing).
func (s *ConfigStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Ensure interface compliance.
var _ ports.SettingsStore = (*ConfigStore)(nil)
