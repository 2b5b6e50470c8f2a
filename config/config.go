// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/revmura/revmura-suite/adapters/hasher"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/version"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "revmura.yaml"

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	OpenAPI   OpenAPIConfig   `yaml:"openapi"`
	Host      version.Host    `yaml:"host"`
	Admin     AdminConfig     `yaml:"admin"`
	Modules   ModulesConfig   `yaml:"modules"`
	Cache     CacheConfig     `yaml:"cache"`
	Multilang MultilangConfig `yaml:"multilang"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TLS            TLSConfig     `yaml:"tls"`
}

// TLSConfig configures HTTPS. Static certificate files take precedence
// over ACME.
type TLSConfig struct {
	CertFile    string   `yaml:"cert_file"`
	KeyFile     string   `yaml:"key_file"`
	ACMEDomains []string `yaml:"acme_domains"`
	ACMEEmail   string   `yaml:"acme_email"`
	ACMEStaging bool     `yaml:"acme_staging"`
	HTTPPort    int      `yaml:"http_port"` // HTTP-01 challenges and redirects; 0 disables
}

// Enabled reports whether the server should listen with TLS.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != "" || len(t.ACMEDomains) > 0
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the settings store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"` // Enable OpenAPI endpoints
}

// AdminConfig configures the admin API.
// Key hashes are bcrypt hashes; see `revmura admin hash-key`.
type AdminConfig struct {
	APIKeyHash    string        `yaml:"api_key_hash"`
	ViewerKeyHash string        `yaml:"viewer_key_hash,omitempty"`
	TokenSecret   string        `yaml:"token_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`
}

// Enabled reports whether an operator key is configured.
func (a AdminConfig) Enabled() bool {
	return a.APIKeyHash != ""
}

// ModulesConfig selects the built-in modules registered with the host.
type ModulesConfig struct {
	Registered   []string `yaml:"registered"`
	BootOnEnable bool     `yaml:"boot_on_enable"`
}

// CacheConfig configures the last-known-good schema snapshot file.
type CacheConfig struct {
	SnapshotPath string `yaml:"snapshot_path"` // empty disables the cache
}

// MultilangConfig describes the site the multilang module runs on.
type MultilangConfig struct {
	SiteID   int    `yaml:"site_id"`
	Language string `yaml:"language"`
}

// DefaultModules lists the built-in modules in registration order.
var DefaultModules = []string{"hello", "multilang", "cpt"}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := newConfig()
	setDefaults(&cfg)
	return &cfg
}

func newConfig() Config {
	return Config{Host: hostDefaults}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	REVMURA_SERVER_HOST          - Server host (default: 0.0.0.0)
//	REVMURA_SERVER_PORT          - Server port (default: 8080)
//	REVMURA_DATABASE_DRIVER      - sqlite or memory (default: sqlite)
//	REVMURA_DATABASE_DSN         - Database path (default: revmura.db)
//	REVMURA_LOG_LEVEL            - debug, info, warn, error (default: info)
//	REVMURA_LOG_FORMAT           - json or console (default: json)
//	REVMURA_METRICS_ENABLED      - Enable /metrics endpoint
//	REVMURA_OPENAPI_ENABLED      - Enable OpenAPI/Swagger
//	REVMURA_HOST_RUNTIME         - Host runtime version
//	REVMURA_HOST_API             - Host API version (empty means core missing)
//	REVMURA_HOST_LANGUAGE        - Language runtime version
//	REVMURA_ADMIN_API_KEY_HASH   - bcrypt hash of the operator key
//	REVMURA_ADMIN_TOKEN_SECRET   - Session signing secret
//	REVMURA_MODULES              - Comma separated built-in modules
//	REVMURA_CACHE_SNAPSHOT_PATH  - Schema snapshot cache file
func LoadFromEnv() (*Config, error) {
	cfg := newConfig()

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables and defaults otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies REVMURA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("REVMURA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REVMURA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REVMURA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("REVMURA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("REVMURA_TLS_CERT_FILE"); v != "" {
		cfg.Server.TLS.CertFile = v
	}
	if v := os.Getenv("REVMURA_TLS_KEY_FILE"); v != "" {
		cfg.Server.TLS.KeyFile = v
	}
	if v := os.Getenv("REVMURA_TLS_ACME_DOMAINS"); v != "" {
		cfg.Server.TLS.ACMEDomains = splitList(v)
	}
	if v := os.Getenv("REVMURA_TLS_ACME_EMAIL"); v != "" {
		cfg.Server.TLS.ACMEEmail = v
	}

	// Database configuration
	if v := os.Getenv("REVMURA_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("REVMURA_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("REVMURA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REVMURA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics and docs
	if v := os.Getenv("REVMURA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("REVMURA_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
	if v := os.Getenv("REVMURA_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}

	// Host versions
	if v := os.Getenv("REVMURA_HOST_RUNTIME"); v != "" {
		cfg.Host.Runtime = v
	}
	if v, ok := os.LookupEnv("REVMURA_HOST_API"); ok {
		cfg.Host.API = v
	}
	if v := os.Getenv("REVMURA_HOST_LANGUAGE"); v != "" {
		cfg.Host.LanguageRuntime = v
	}

	// Admin configuration
	if v := os.Getenv("REVMURA_ADMIN_API_KEY_HASH"); v != "" {
		cfg.Admin.APIKeyHash = v
	}
	if v := os.Getenv("REVMURA_ADMIN_VIEWER_KEY_HASH"); v != "" {
		cfg.Admin.ViewerKeyHash = v
	}
	if v := os.Getenv("REVMURA_ADMIN_TOKEN_SECRET"); v != "" {
		cfg.Admin.TokenSecret = v
	}
	if v := os.Getenv("REVMURA_ADMIN_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Admin.SessionTTL = d
		}
	}
	if v := os.Getenv("REVMURA_ADMIN_COOKIE_SECURE"); v != "" {
		cfg.Admin.CookieSecure = parseBool(v)
	}

	// Modules
	if v := os.Getenv("REVMURA_MODULES"); v != "" {
		cfg.Modules.Registered = splitList(v)
	}
	if v := os.Getenv("REVMURA_MODULES_BOOT_ON_ENABLE"); v != "" {
		cfg.Modules.BootOnEnable = parseBool(v)
	}

	if v := os.Getenv("REVMURA_CACHE_SNAPSHOT_PATH"); v != "" {
		cfg.Cache.SnapshotPath = v
	}

	// Multilang
	if v := os.Getenv("REVMURA_MULTILANG_SITE_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Multilang.SiteID = n
		}
	}
	if v := os.Getenv("REVMURA_MULTILANG_LANGUAGE"); v != "" {
		cfg.Multilang.Language = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// hostDefaults are the versions this build of the host provides.
var hostDefaults = version.Host{Runtime: "6.5", API: "1.0.0", LanguageRuntime: "8.3"}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "revmura.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// host.api is not defaulted here: an explicitly empty value means the
	// core is missing. newConfig seeds it before the file is decoded.
	if cfg.Host.Runtime == "" {
		cfg.Host.Runtime = hostDefaults.Runtime
	}
	if cfg.Host.LanguageRuntime == "" {
		cfg.Host.LanguageRuntime = hostDefaults.LanguageRuntime
	}

	if cfg.Admin.SessionTTL == 0 {
		cfg.Admin.SessionTTL = 24 * time.Hour
	}

	if len(cfg.Modules.Registered) == 0 {
		cfg.Modules.Registered = append([]string(nil), DefaultModules...)
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if (cfg.Server.TLS.CertFile == "") != (cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file must be set together")
	}
	if p := cfg.Server.TLS.HTTPPort; p < 0 || p > 65535 || (p != 0 && p == cfg.Server.Port) {
		return fmt.Errorf("server.tls.http_port must be a free port between 1 and 65535, got %d", p)
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver)
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	if _, ok := version.Normalize(cfg.Host.Runtime); !ok {
		return fmt.Errorf("host.runtime %q is not a version", cfg.Host.Runtime)
	}
	if _, ok := version.Normalize(cfg.Host.LanguageRuntime); !ok {
		return fmt.Errorf("host.language_runtime %q is not a version", cfg.Host.LanguageRuntime)
	}
	if cfg.Host.API != "" {
		if _, ok := version.Normalize(cfg.Host.API); !ok {
			return fmt.Errorf("host.api %q is not a version", cfg.Host.API)
		}
	}

	if cfg.Admin.APIKeyHash != "" && !hasher.IsHash(cfg.Admin.APIKeyHash) {
		return fmt.Errorf("admin.api_key_hash must be a bcrypt hash (see 'revmura admin hash-key')")
	}
	if cfg.Admin.ViewerKeyHash != "" && !hasher.IsHash(cfg.Admin.ViewerKeyHash) {
		return fmt.Errorf("admin.viewer_key_hash must be a bcrypt hash")
	}
	if cfg.Admin.SessionTTL < 0 {
		return fmt.Errorf("admin.session_ttl must be positive")
	}

	seen := make(map[string]bool, len(cfg.Modules.Registered))
	for i, id := range cfg.Modules.Registered {
		norm := module.NormalizeID(id)
		if norm == "" {
			return fmt.Errorf("modules.registered[%d] is not a valid module id", i)
		}
		if seen[norm] {
			return fmt.Errorf("modules.registered lists %q twice", norm)
		}
		seen[norm] = true
	}

	if cfg.Multilang.SiteID < 0 {
		return fmt.Errorf("multilang.site_id must not be negative")
	}

	return nil
}
