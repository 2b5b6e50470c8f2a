package bootstrap_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/revmura/revmura-suite/adapters/auth"
	"github.com/revmura/revmura-suite/adapters/hasher"
	"github.com/revmura/revmura-suite/bootstrap"
	"github.com/revmura/revmura-suite/config"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/settings"
)

const adminKey = "rvm_bootstrap_test_key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := hasher.NewBcrypt(4).Hash(adminKey)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "revmura.db")
	cfg.Metrics.Enabled = true
	cfg.OpenAPI.Enabled = true
	cfg.Admin.APIKeyHash = string(hash)
	cfg.Admin.TokenSecret = "test-secret"
	cfg.Cache.SnapshotPath = filepath.Join(t.TempDir(), "cache", "schema.json")
	return cfg
}

func newApp(t *testing.T, cfg *config.Config) *bootstrap.App {
	t.Helper()
	a, err := bootstrap.New(bootstrap.Options{Config: cfg, Version: "test", LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func operatorCtx() context.Context {
	return auth.WithActor(context.Background(), auth.LocalOperator)
}

func TestNew_WiresComponents(t *testing.T) {
	a := newApp(t, testConfig(t))

	if a.DB == nil {
		t.Error("DB should not be nil")
	}
	if a.HTTPServer == nil {
		t.Error("HTTPServer should not be nil")
	}
	if a.Admin == nil {
		t.Error("Admin should be enabled with a key hash")
	}
	if a.Metrics == nil {
		t.Error("Metrics should be enabled")
	}
	if a.Registry.Len() != 3 {
		t.Errorf("registered modules = %d, want 3", a.Registry.Len())
	}

	var ids []string
	for _, d := range a.Registry.Descriptors() {
		ids = append(ids, d.ID)
	}
	if strings.Join(ids, ",") != "hello,multilang,cpt" {
		t.Errorf("registration order = %v", ids)
	}
}

func TestNew_MigratesMappingTables(t *testing.T) {
	a := newApp(t, testConfig(t))

	for _, table := range []string{"settings", "revmura_post_mappings", "revmura_term_mappings"} {
		ok, err := a.DB.TableExists(context.Background(), table)
		if err != nil {
			t.Fatalf("TableExists(%s): %v", table, err)
		}
		if !ok {
			t.Errorf("table %s missing after migration", table)
		}
	}
}

func TestNew_UnknownModule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Modules.Registered = []string{"hello", "payments"}

	_, err := bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "payments") {
		t.Fatalf("err = %v, want unknown module error", err)
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "memory"
	cfg.Database.DSN = ""

	a := newApp(t, cfg)
	if a.DB != nil {
		t.Error("memory driver should not open a database")
	}
	if _, err := a.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}
}

func TestNew_AdminDisabledWithoutKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Admin.APIKeyHash = ""

	a := newApp(t, cfg)
	if a.Admin != nil {
		t.Error("admin should be disabled")
	}

	rec := httptest.NewRecorder()
	a.HTTPServer.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/modules", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestApp_EnableBootAndServe(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)
	handler := a.HTTPServer.Handler

	// Not ready before boot.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before boot = %d, want 503", rec.Code)
	}

	// Enabling before boot only persists the set.
	if _, err := a.Lifecycle.Toggle(operatorCtx(), []string{"cpt", "hello"}); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if _, err := a.Schemas.Apply(operatorCtx(), []byte(`{"cpts":{"offer":{"label":"Offers"}},"taxes":[]}`)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	report, err := a.Boot(context.Background())
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if strings.Join(report.Active, ",") != "hello,cpt" {
		t.Errorf("active = %v, want registration order hello,cpt", report.Active)
	}
	if a.Lifecycle.State("multilang") != module.StateDisabled {
		t.Errorf("multilang state = %s", a.Lifecycle.State("multilang"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready after boot = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/content-types", nil))
	if !strings.Contains(rec.Body.String(), `"slug":"offer"`) {
		t.Errorf("content types = %s", rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/admin/panels", nil)
	req.Header.Set("X-API-Key", adminKey)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("panels status = %d: %s", rec.Code, rec.Body.String())
	}
	var panels struct {
		Panels []struct{ ID string } `json:"panels"`
	}
	json.NewDecoder(rec.Body).Decode(&panels)
	if len(panels.Panels) != 2 {
		t.Errorf("panels = %+v, want hello and cpt", panels.Panels)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "revmura_module_boots_total") {
		t.Error("metrics should include module boots")
	}
}

func TestApp_SnapshotCacheWritten(t *testing.T) {
	cfg := testConfig(t)
	a := newApp(t, cfg)

	if _, err := a.Schemas.Apply(operatorCtx(), []byte(`{"cpts":{"offer":{"label":"Offers"}}}`)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	data, err := os.ReadFile(cfg.Cache.SnapshotPath)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if !strings.Contains(string(data), `"offer"`) {
		t.Errorf("cache = %s", data)
	}
}

func TestApp_StatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)

	first := newApp(t, cfg)
	if _, err := first.Lifecycle.Toggle(operatorCtx(), []string{"hello"}); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	first.Close()

	second := newApp(t, cfg)
	var enabled []string
	if _, err := second.Store.Load(context.Background(), settings.KeyModulesEnabled, &enabled); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Join(enabled, ",") != "hello" {
		t.Errorf("enabled = %v, want [hello]", enabled)
	}
}

func TestNew_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "revmura.yaml")
	content := "database:\n  dsn: \"" + filepath.Join(dir, "file.db") + "\"\nmodules:\n  registered: [\"cpt\"]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := bootstrap.New(bootstrap.Options{ConfigPath: path, Watch: true, LogOutput: io.Discard})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Registry.Len() != 1 {
		t.Errorf("registered = %d, want 1", a.Registry.Len())
	}
}

func TestNew_ACMEChallengeServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 8443
	cfg.Server.TLS.ACMEDomains = []string{"example.com"}
	cfg.Server.TLS.ACMEStaging = true
	cfg.Server.TLS.HTTPPort = 8080
	a := newApp(t, cfg)

	if a.HTTPServer.TLSConfig == nil {
		t.Fatal("TLSConfig should be set when acme domains are configured")
	}
	if a.ChallengeServer == nil {
		t.Fatal("ChallengeServer should be set when http_port is configured")
	}

	req := httptest.NewRequest("GET", "http://example.com/health?x=1", nil)
	rec := httptest.NewRecorder()
	a.ChallengeServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://example.com:8443/health?x=1" {
		t.Errorf("Location = %q", got)
	}
}

func TestNew_TLSBadCertificate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.TLS.CertFile = filepath.Join(t.TempDir(), "missing.pem")
	cfg.Server.TLS.KeyFile = filepath.Join(t.TempDir(), "missing.key")

	if _, err := bootstrap.New(bootstrap.Options{Config: cfg, LogOutput: io.Discard}); err == nil {
		t.Fatal("missing certificate files should fail")
	}
}
