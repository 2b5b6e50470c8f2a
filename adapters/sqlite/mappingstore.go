package sqlite

import (
	"context"
	"fmt"

	"github.com/revmura/revmura-suite/ports"
)

// Mapping table names.
const (
	TablePostMappings  = "revmura_post_mappings"
	TableTermMappings  = "revmura_term_mappings"
	TableMediaMappings = "revmura_media_mappings"
)

// MappingTables lists the tables the multilang module depends on.
var MappingTables = []string{TablePostMappings, TableTermMappings, TableMediaMappings}

// Mapping is one source-to-target translation link.
type Mapping struct {
	SourceSiteID int
	SourceID     int
	TargetSiteID int
	TargetID     int
}

// MappingStore reads and writes the multilang mapping tables.
type MappingStore struct {
	db *DB
}

// NewMappingStore creates a new mapping store.
func NewMappingStore(db *DB) *MappingStore {
	return &MappingStore{db: db}
}

// Missing returns the mapping tables that do not exist.
func (s *MappingStore) Missing(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range MappingTables {
		ok, err := s.db.TableExists(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("check table %s: %w", table, err)
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

// Counts returns how many mappings have siteID as source or target.
// Tables that are missing count as zero.
func (s *MappingStore) Counts(ctx context.Context, siteID int) (ports.MappingCounts, error) {
	var counts ports.MappingCounts
	targets := []struct {
		table string
		dst   *int
	}{
		{TablePostMappings, &counts.Posts},
		{TableTermMappings, &counts.Terms},
		{TableMediaMappings, &counts.Media},
	}

	for _, t := range targets {
		ok, err := s.db.TableExists(ctx, t.table)
		if err != nil {
			return counts, err
		}
		if !ok {
			continue
		}
		// table name comes from the fixed list above
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM `+t.table+` WHERE source_site_id = ? OR target_site_id = ?`,
			siteID, siteID,
		).Scan(t.dst)
		if err != nil {
			return counts, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return counts, nil
}

// Add records a mapping in table. Re-adding the same source and target
// site replaces the target id.
func (s *MappingStore) Add(ctx context.Context, table string, m Mapping) error {
	if !isMappingTable(table) {
		return fmt.Errorf("unknown mapping table %q", table)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (source_site_id, source_id, target_site_id, target_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_site_id, source_id, target_site_id) DO UPDATE SET
			target_id = excluded.target_id`,
		m.SourceSiteID, m.SourceID, m.TargetSiteID, m.TargetID,
	)
	return err
}

func isMappingTable(name string) bool {
	for _, t := range MappingTables {
		if t == name {
			return true
		}
	}
	return false
}

// Ensure interface compliance.
var _ ports.MappingStats = (*MappingStore)(nil)
