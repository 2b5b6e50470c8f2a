package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/ports"
)

// ConfigStore implements ports.SettingsStore on the settings table.
// Values are stored as JSON documents.
type ConfigStore struct {
	db *DB
}

// NewConfigStore creates a new config store.
func NewConfigStore(db *DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// Get retrieves a single raw setting by key.
func (s *ConfigStore) Get(ctx context.Context, key string) (settings.Setting, bool, error) {
	var setting settings.Setting
	var updatedAt string

	err := s.db.DB.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key = ?`,
		key,
	).Scan(&setting.Key, &setting.Value, &updatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Setting{}, false, nil
		}
		return settings.Setting{}, false, err
	}

	setting.UpdatedAt = parseTime(updatedAt)
	return setting, true, nil
}

// Load decodes the value stored under key into dst.
func (s *ConfigStore) Load(ctx context.Context, key string, dst any) (bool, error) {
	setting, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := setting.Decode(dst); err != nil {
		return true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Save stores or replaces the value under key.
func (s *ConfigStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, string(data))
}

// SetRaw stores an already encoded JSON document.
func (s *ConfigStore) SetRaw(ctx context.Context, key, value string) error {
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("setting %s: value is not valid JSON", key)
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	return err
}

// List retrieves all settings ordered by key.
func (s *ConfigStore) List(ctx context.Context) ([]settings.Setting, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings ORDER BY key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settings.Setting
	for rows.Next() {
		var setting settings.Setting
		var updatedAt string
		if err := rows.Scan(&setting.Key, &setting.Value, &updatedAt); err != nil {
			return nil, err
		}
		setting.UpdatedAt = parseTime(updatedAt)
		result = append(result, setting)
	}

	return result, rows.Err()
}

// Delete removes a setting.
func (s *ConfigStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ?`,
		key,
	)
	return err
}

func parseTime(v string) time.Time {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", v)
	return t
}

// Ensure interface compliance.
var _ ports.SettingsStore = (*ConfigStore)(nil)
