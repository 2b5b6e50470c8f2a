package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/revmura/revmura-suite/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", got.Logging.Level)
	}
}

func TestHolder_NewHolderInvalid(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")
	if _, err := config.NewHolder(path, zerolog.Nop()); err == nil {
		t.Error("NewHolder should fail for an invalid file")
	}
}

func TestHolder_ReloadNotifies(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var received *config.Config
	var outcomes []error
	h.OnChange(func(cfg *config.Config) { received = cfg })
	h.OnReload(func(err error) { outcomes = append(outcomes, err) })

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\nadmin:\n  session_ttl: 1h\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if h.Get().Logging.Level != "debug" {
		t.Errorf("reloaded level = %s, want debug", h.Get().Logging.Level)
	}
	if received == nil || received.Admin.SessionTTL != time.Hour {
		t.Errorf("OnChange received %+v", received)
	}
	if len(outcomes) != 1 || outcomes[0] != nil {
		t.Errorf("OnReload outcomes = %v, want [nil]", outcomes)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := false
	var outcome error
	h.OnChange(func(*config.Config) { changed = true })
	h.OnReload(func(err error) { outcome = err })

	if err := os.WriteFile(path, []byte("admin:\n  api_key_hash: plaintext\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if changed {
		t.Error("OnChange should not run for a rejected reload")
	}
	if outcome == nil {
		t.Error("OnReload should receive the error")
	}

	// Old config should still be in place
	if h.Get().Admin.APIKeyHash != "" {
		t.Errorf("should keep old config, got %+v", h.Get().Admin)
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Get().Logging.Level == "warn" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("after file watch, Logging.Level = %s, want warn", h.Get().Logging.Level)
}

func TestHolder_StopTwice(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestReloadableFields(t *testing.T) {
	reloadable := map[string]bool{}
	for _, f := range config.ReloadableFields() {
		reloadable[f] = true
	}
	for _, want := range []string{"logging.level", "admin.api_key_hash"} {
		if !reloadable[want] {
			t.Errorf("%s not in ReloadableFields", want)
		}
	}

	for _, f := range config.NonReloadableFields() {
		if reloadable[f] {
			t.Errorf("%s is listed as both reloadable and not", f)
		}
	}
}

func TestNonReloadableFields(t *testing.T) {
	fields := map[string]bool{}
	for _, f := range config.NonReloadableFields() {
		fields[f] = true
	}
	for _, want := range []string{"server.port", "database.dsn", "host.api", "modules.registered"} {
		if !fields[want] {
			t.Errorf("%s not in NonReloadableFields", want)
		}
	}
}

func validConfig() string {
	return `
logging:
  level: info
modules:
  registered: ["hello", "cpt"]
`
}
