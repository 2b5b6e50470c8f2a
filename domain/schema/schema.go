// Package schema provides the content-type schema snapshot value types and
// the pure rules that decode, export and referentially clean them.
// This package has NO dependencies on I/O.
package schema

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultVersion is the schema version assumed when none is given.
const DefaultVersion = "1.0"

// Registration defaults for primary entities.
const (
	DefaultCapabilityType = "post"
	DefaultMenuIcon       = "dashicons-admin-post"
	DefaultMenuPosition   = 26
)

// DefaultSupports are the capability flags a primary entity gets when none
// are declared.
var DefaultSupports = []string{"title", "editor", "thumbnail", "revisions"}

var (
	// ErrInvalidSnapshot is returned when input is not an object at all.
	ErrInvalidSnapshot = errors.New("schema snapshot must be a JSON object")
	// ErrInvalidKey is returned when a key normalizes to empty.
	ErrInvalidKey = errors.New("invalid entity key")
)

// Rewrite is the url-path fragment of an entity.
type Rewrite struct {
	Slug      string `json:"slug"`
	WithFront bool   `json:"with_front"`
}

// Primary describes a content type.
type Primary struct {
	Label          string   `json:"label"`
	Supports       []string `json:"supports"`
	Rewrite        Rewrite  `json:"rewrite"`
	HasArchive     bool     `json:"has_archive"`
	Hierarchical   bool     `json:"hierarchical"`
	MapMetaCap     bool     `json:"map_meta_cap"`
	CapabilityType string   `json:"capability_type"`
	MenuIcon       string   `json:"menu_icon"`
	MenuPosition   int      `json:"menu_position"`
}

// Secondary describes a taxonomy classifying one or more content types.
type Secondary struct {
	Slug         string   `json:"slug"`
	Label        string   `json:"label"`
	Rewrite      Rewrite  `json:"rewrite"`
	Hierarchical bool     `json:"hierarchical"`
	ObjectTypes  []string `json:"object_types"`
}

// Snapshot is the complete, wholesale-replaceable schema state.
type Snapshot struct {
	SchemaVersion string             `json:"schema_version"`
	Primaries     map[string]Primary `json:"cpts"`
	Secondaries   []Secondary        `json:"taxes"`
}

// Empty returns the canonical empty shell.
func Empty() Snapshot {
	return Snapshot{
		SchemaVersion: DefaultVersion,
		Primaries:     map[string]Primary{},
		Secondaries:   []Secondary{},
	}
}

// IsEmpty reports whether the snapshot holds no entities.
func (s Snapshot) IsEmpty() bool {
	return len(s.Primaries) == 0 && len(s.Secondaries) == 0
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		SchemaVersion: s.SchemaVersion,
		Primaries:     make(map[string]Primary, len(s.Primaries)),
		Secondaries:   make([]Secondary, 0, len(s.Secondaries)),
	}
	for k, p := range s.Primaries {
		p.Supports = append([]string(nil), p.Supports...)
		out.Primaries[k] = p
	}
	for _, sec := range s.Secondaries {
		sec.ObjectTypes = append([]string(nil), sec.ObjectTypes...)
		out.Secondaries = append(out.Secondaries, sec)
	}
	return out
}

// PrimaryKeys returns the primary keys in sorted order.
func (s Snapshot) PrimaryKeys() []string {
	keys := make([]string, 0, len(s.Primaries))
	for k := range s.Primaries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON decodes permissively so that stored or imported data in
// older shapes still loads.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*s = Empty()
		return nil
	}
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NormalizeKey lowercases a key and keeps only [a-z0-9_-].
func NormalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Parse decodes a JSON document into a snapshot, substituting defaults for
// anything missing or of the wrong shape. Only a non-object document fails.
func Parse(data []byte) (Snapshot, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, ErrInvalidSnapshot
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Snapshot{}, ErrInvalidSnapshot
	}
	return FromMap(m), nil
}

// FromMap builds a snapshot from generic decoded data (JSON or YAML).
func FromMap(m map[string]any) Snapshot {
	s := Empty()

	if v, ok := m["schema_version"]; ok && v != nil {
		if str := versionString(v); str != "" {
			s.SchemaVersion = str
		}
	}

	if cpts, ok := m["cpts"].(map[string]any); ok {
		for key, v := range cpts {
			cfg, ok := v.(map[string]any)
			if !ok {
				continue
			}
			s.Primaries[key] = primaryFromMap(key, cfg)
		}
	}

	switch taxes := m["taxes"].(type) {
	case []any:
		for _, v := range taxes {
			cfg, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if sec, ok := secondaryFromMap("", cfg); ok {
				s.Secondaries = append(s.Secondaries, sec)
			}
		}
	case map[string]any:
		// Legacy shape: taxonomies keyed by slug.
		keys := make([]string, 0, len(taxes))
		for k := range taxes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cfg, ok := taxes[k].(map[string]any)
			if !ok {
				continue
			}
			if sec, ok := secondaryFromMap(k, cfg); ok {
				s.Secondaries = append(s.Secondaries, sec)
			}
		}
	}

	return s
}

func primaryFromMap(key string, cfg map[string]any) Primary {
	p := Primary{
		Label:          toString(cfg["label"], key),
		Supports:       toStrings(cfg["supports"], DefaultSupports),
		Rewrite:        Rewrite{Slug: rewriteSlug(cfg["rewrite"], key)},
		HasArchive:     toBool(cfg["has_archive"]),
		Hierarchical:   toBool(cfg["hierarchical"]),
		MapMetaCap:     toBool(cfg["map_meta_cap"]),
		CapabilityType: toString(cfg["capability_type"], DefaultCapabilityType),
		MenuIcon:       toString(cfg["menu_icon"], DefaultMenuIcon),
		MenuPosition:   toInt(cfg["menu_position"], DefaultMenuPosition),
	}
	return p
}

// secondaryFromMap returns false when the entity links to nothing.
func secondaryFromMap(fallbackSlug string, cfg map[string]any) (Secondary, bool) {
	slug := toString(cfg["slug"], fallbackSlug)
	sec := Secondary{
		Slug:         slug,
		Label:        toString(cfg["label"], slug),
		Rewrite:      Rewrite{Slug: rewriteSlug(cfg["rewrite"], slug)},
		Hierarchical: toBool(cfg["hierarchical"]),
		ObjectTypes:  toStrings(cfg["object_types"], nil),
	}
	if len(sec.ObjectTypes) == 0 {
		return Secondary{}, false
	}
	return sec, true
}

func rewriteSlug(v any, fallback string) string {
	if m, ok := v.(map[string]any); ok {
		return toString(m["slug"], fallback)
	}
	return fallback
}

// versionString renders a schema version. An unquoted YAML or JSON 1.0
// arrives as a whole float and keeps its ".0".
func versionString(v any) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return toString(v, "")
}

func toString(v any, def string) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return def
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return false
}

func toInt(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	}
	return def
}

// toStrings accepts a list, a map of flags ({"title": true}) or a scalar.
func toStrings(v any, def []string) []string {
	switch t := v.(type) {
	case nil:
		return append([]string(nil), def...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := toString(item, ""); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k, flag := range t {
			if toBool(flag) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return keys
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	}
	return append([]string(nil), def...)
}
