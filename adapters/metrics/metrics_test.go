package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/revmura/revmura-suite/adapters/metrics"
	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/domain/schema"
	"github.com/rs/zerolog"
)

func newAttached(t *testing.T) (*metrics.Collector, *events.Bus, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	bus := events.NewBus(zerolog.Nop())
	m.Attach(bus)
	return m, bus, reg
}

func TestNewWithRegistry_Registers(t *testing.T) {
	_, _, reg := newAttached(t)

	// Counter vecs only appear once a label set is used; plain metrics are
	// always gathered.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"revmura_http_requests_in_flight",
		"revmura_module_toggles_total",
		"revmura_schema_commits_total",
		"revmura_config_reloads_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestAttach_ModuleEvents(t *testing.T) {
	m, bus, _ := newAttached(t)
	ctx := context.Background()

	bus.Emit(ctx, "module.booted", map[string]any{"module": "cpt", "version": "1.0.0"})
	bus.Emit(ctx, "module.booted", map[string]any{"module": "cpt", "version": "1.0.0"})
	bus.Emit(ctx, "module.upgraded", map[string]any{"module": "cpt", "from": "0.9.0", "to": "1.0.0"})
	bus.Emit(ctx, "module.gated", map[string]any{"module": "hello", "axes": []string{"host API", "language runtime"}})
	bus.Emit(ctx, "module.faulted", map[string]any{"module": "multilang", "callback": "boot", "error": "x"})
	bus.Emit(ctx, "module.uninstalled", map[string]any{"module": "hello"})

	if got := testutil.ToFloat64(m.ModuleBoots.WithLabelValues("cpt")); got != 2 {
		t.Errorf("boots = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ModuleUpgrades.WithLabelValues("cpt")); got != 1 {
		t.Errorf("upgrades = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GateFailures.WithLabelValues("hello", "host API")); got != 1 {
		t.Errorf("gate failures (host API) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GateFailures.WithLabelValues("hello", "language runtime")); got != 1 {
		t.Errorf("gate failures (language runtime) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CallbackFaults.WithLabelValues("multilang", "boot")); got != 1 {
		t.Errorf("faults = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Uninstalls.WithLabelValues("hello")); got != 1 {
		t.Errorf("uninstalls = %v, want 1", got)
	}
}

func TestAttach_ToggleAndSchema(t *testing.T) {
	m, bus, _ := newAttached(t)
	ctx := context.Background()

	bus.Emit(ctx, "modules.toggled", map[string]any{"enabled": []string{"cpt", "hello"}})
	bus.Emit(ctx, "modules.toggled", map[string]any{"enabled": []string{"cpt"}})

	if got := testutil.ToFloat64(m.Toggles); got != 2 {
		t.Errorf("toggles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ModulesEnabled); got != 1 {
		t.Errorf("enabled gauge = %v, want 1", got)
	}

	snap := schema.Empty()
	snap.Primaries["offer"] = schema.Primary{Label: "Offers"}
	snap.Primaries["review"] = schema.Primary{Label: "Reviews"}
	snap.Secondaries = append(snap.Secondaries, schema.Secondary{Slug: "offer_cat", ObjectTypes: []string{"offer"}})
	bus.Emit(ctx, "schema.committed", map[string]any{"snapshot": snap})

	if got := testutil.ToFloat64(m.SchemaCommits); got != 1 {
		t.Errorf("schema commits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SchemaEntities.WithLabelValues("primary")); got != 2 {
		t.Errorf("primaries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SchemaEntities.WithLabelValues("secondary")); got != 1 {
		t.Errorf("secondaries = %v, want 1", got)
	}
}

func TestRecordReload(t *testing.T) {
	m, _, _ := newAttached(t)

	m.RecordReload(nil)
	m.RecordReload(errors.New("bad yaml"))

	if got := testutil.ToFloat64(m.ConfigReloads); got != 1 {
		t.Errorf("reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ConfigReloadErrors); got != 1 {
		t.Errorf("reload errors = %v, want 1", got)
	}
	if testutil.ToFloat64(m.ConfigLastReload) == 0 {
		t.Error("last reload timestamp not set")
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{
		100: "other",
		200: "2xx",
		204: "2xx",
		302: "3xx",
		404: "4xx",
		409: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for code, want := range tests {
		if got := metrics.StatusLabel(code); got != want {
			t.Errorf("StatusLabel(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"":                         "unmatched",
		"/admin/modules":           "/admin/modules",
		"/swagger/*":               "/swagger",
		"/admin/modules/{id}/data": "/admin/modules/{id}/data",
	}
	for in, want := range tests {
		if got := metrics.RouteLabel(in); got != want {
			t.Errorf("RouteLabel(%q) = %s, want %s", in, got, want)
		}
	}
}
