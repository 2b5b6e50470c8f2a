// Package metrics provides Prometheus metrics for the module host.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/domain/schema"
)

const namespace = "revmura"

// Collector holds all Prometheus metrics for the host.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Admin auth metrics
	AuthFailures *prometheus.CounterVec

	// Module lifecycle metrics
	ModuleBoots    *prometheus.CounterVec
	GateFailures   *prometheus.CounterVec
	CallbackFaults *prometheus.CounterVec
	ModuleUpgrades *prometheus.CounterVec
	Toggles        prometheus.Counter
	Uninstalls     *prometheus.CounterVec
	ModulesEnabled prometheus.Gauge

	// Schema metrics
	SchemaCommits  prometheus.Counter
	SchemaEntities *prometheus.GaugeVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_auth_failures_total",
				Help:      "Total number of rejected admin API requests",
			},
			[]string{"reason"},
		),
		ModuleBoots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_boots_total",
				Help:      "Total number of successful module boots",
			},
			[]string{"module"},
		),
		GateFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_gate_failures_total",
				Help:      "Total number of modules gated out, by failing axis",
			},
			[]string{"module", "axis"},
		),
		CallbackFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_callback_faults_total",
				Help:      "Total number of isolated module callback failures",
			},
			[]string{"module", "callback"},
		),
		ModuleUpgrades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_upgrades_total",
				Help:      "Total number of detected module version upgrades",
			},
			[]string{"module"},
		),
		Toggles: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_toggles_total",
				Help:      "Total number of enabled-set updates",
			},
		),
		Uninstalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_uninstalls_total",
				Help:      "Total number of module data deletions",
			},
			[]string{"module"},
		),
		ModulesEnabled: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "modules_enabled",
				Help:      "Number of modules in the enabled set",
			},
		),
		SchemaCommits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_commits_total",
				Help:      "Total number of persisted schema snapshots",
			},
		),
		SchemaEntities: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_entities",
				Help:      "Entities in the current schema snapshot",
			},
			[]string{"kind"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// Attach subscribes the collector to lifecycle and schema events.
func (c *Collector) Attach(bus *events.Bus) {
	bus.Subscribe("module.*", c.onModuleEvent)
	bus.Subscribe("modules.toggled", c.onToggle)
	bus.Subscribe("schema.committed", c.onSchemaCommit)
}

func (c *Collector) onModuleEvent(ctx context.Context, e events.Event) error {
	switch e.Name {
	case "module.booted":
		c.ModuleBoots.WithLabelValues(e.Module).Inc()
	case "module.upgraded":
		c.ModuleUpgrades.WithLabelValues(e.Module).Inc()
	case "module.faulted":
		c.CallbackFaults.WithLabelValues(e.Module, fmt.Sprint(e.Data["callback"])).Inc()
	case "module.uninstalled":
		c.Uninstalls.WithLabelValues(e.Module).Inc()
	case "module.gated":
		axes, _ := e.Data["axes"].([]string)
		for _, axis := range axes {
			c.GateFailures.WithLabelValues(e.Module, axis).Inc()
		}
	}
	return nil
}

func (c *Collector) onToggle(ctx context.Context, e events.Event) error {
	c.Toggles.Inc()
	if enabled, ok := e.Data["enabled"].([]string); ok {
		c.ModulesEnabled.Set(float64(len(enabled)))
	}
	return nil
}

func (c *Collector) onSchemaCommit(ctx context.Context, e events.Event) error {
	c.SchemaCommits.Inc()
	if snap, ok := e.Data["snapshot"].(schema.Snapshot); ok {
		c.SchemaEntities.WithLabelValues("primary").Set(float64(len(snap.Primaries)))
		c.SchemaEntities.WithLabelValues("secondary").Set(float64(len(snap.Secondaries)))
	}
	return nil
}

// RecordReload updates the config reload metrics.
func (c *Collector) RecordReload(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(time.Now().Unix()))
}

// StatusLabel returns a string label for the status code class.
func StatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// RouteLabel bounds label cardinality: a matched route pattern is used as
// is, anything else collapses to "unmatched".
func RouteLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return strings.TrimSuffix(pattern, "/*")
}
