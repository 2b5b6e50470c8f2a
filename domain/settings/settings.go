// Package settings provides value types for persisted host settings.
// Values are stored as JSON documents so nested maps and lists survive.
package settings

import (
	"encoding/json"
	"strings"
	"time"
)

// Setting represents a single persisted setting (immutable value type).
type Setting struct {
	Key       string
	Value     string // JSON document
	UpdatedAt time.Time
}

// Decode unmarshals the stored JSON into dst.
func (s Setting) Decode(dst any) error {
	return json.Unmarshal([]byte(s.Value), dst)
}

// Display returns a single-line rendering of the value, truncated to max
// runes when max > 0.
func (s Setting) Display(max int) string {
	v := strings.Join(strings.Fields(s.Value), " ")
	if max > 0 {
		r := []rune(v)
		if len(r) > max {
			return string(r[:max-3]) + "..."
		}
	}
	return v
}

// Known setting keys (namespaced by owner).
const (
	// Lifecycle engine
	KeyModulesEnabled = "modules.enabled"
	KeyModuleVersions = "modules.versions"

	// Module-owned
	KeySchema    = "cpt.schema"
	KeyMultilang = "multilang.settings"

	// Certificate cache entries are stored under this prefix.
	KeyTLSPrefix = "tls.acme."
)

// Owner returns the module id that owns key, or "" for host-level keys.
func Owner(key string) string {
	prefix, _, ok := strings.Cut(key, ".")
	if !ok || prefix == "modules" || prefix == "tls" {
		return ""
	}
	return prefix
}

// EncodeValue renders a CLI argument as a JSON document. Valid JSON is kept
// as-is; anything else is stored as a JSON string.
func EncodeValue(raw string) string {
	if json.Valid([]byte(raw)) {
		return raw
	}
	b, _ := json.Marshal(raw)
	return string(b)
}
