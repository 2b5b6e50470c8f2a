package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/revmura/revmura-suite/core/registry"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/domain/version"
	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// Lifecycle event names.
const (
	EventModuleBooted      = "module.booted"
	EventModuleActivated   = "module.activated"
	EventModuleUpgraded    = "module.upgraded"
	EventModuleGated       = "module.gated"
	EventModuleFaulted     = "module.faulted"
	EventModuleUninstalled = "module.uninstalled"
	EventModulesToggled    = "modules.toggled"
	EventCoreMissing       = "host.core_missing"
)

// LifecycleConfig configures the lifecycle manager.
type LifecycleConfig struct {
	// Host holds the versions the running host provides.
	Host version.Host

	// BootOnEnable boots a newly enabled module immediately when the
	// manager has already booted in this process.
	BootOnEnable bool
}

// LifecycleDeps contains the collaborators of the lifecycle manager.
type LifecycleDeps struct {
	Registry *registry.Registry
	Store    ports.ConfigStore
	Events   ports.EventSink
	Auth     ports.Authorizer
	Logger   zerolog.Logger
}

// LifecycleManager boots modules and applies enable, disable and uninstall
// transitions. Module callbacks run inside failure isolation so one module
// can never stop the others.
type LifecycleManager struct {
	registry *registry.Registry
	store    ports.ConfigStore
	events   ports.EventSink
	auth     ports.Authorizer
	logger   zerolog.Logger
	cfg      LifecycleConfig

	bootMu sync.Mutex
	booted bool
	report BootReport

	mu     sync.RWMutex
	status map[string]*moduleStatus
}

type moduleStatus struct {
	state      module.State
	failedAxes []string
	lastFault  *module.Fault
}

// BootReport summarizes one boot pass.
type BootReport struct {
	CoreMissing bool                `json:"core_missing"`
	Active      []string            `json:"active"`
	Disabled    []string            `json:"disabled"`
	Gated       []*module.GateError `json:"-"`
	Faults      []module.Fault      `json:"-"`
}

// ToggleReport summarizes one enable/disable request.
type ToggleReport struct {
	Enabled     []string       `json:"enabled"`
	EnabledNow  []string       `json:"enabled_now"`
	DisabledNow []string       `json:"disabled_now"`
	Faults      []module.Fault `json:"-"`
}

// UninstallReport summarizes one data deletion request.
type UninstallReport struct {
	Module        string        `json:"module"`
	Registered    bool          `json:"registered"`
	LedgerCleared bool          `json:"ledger_cleared"`
	Fault         *module.Fault `json:"-"`
}

// ModuleStatus is the operator view of one registered module.
type ModuleStatus struct {
	module.Descriptor
	State         module.State `json:"state"`
	Enabled       bool         `json:"enabled"`
	LedgerVersion string       `json:"ledger_version,omitempty"`
	FailedAxes    []string     `json:"failed_axes,omitempty"`
	LastFault     string       `json:"last_fault,omitempty"`
}

// NewLifecycleManager creates a lifecycle manager.
func NewLifecycleManager(deps LifecycleDeps, cfg LifecycleConfig) *LifecycleManager {
	return &LifecycleManager{
		registry: deps.Registry,
		store:    deps.Store,
		events:   deps.Events,
		auth:     deps.Auth,
		logger:   deps.Logger,
		cfg:      cfg,
		status:   make(map[string]*moduleStatus),
	}
}

// Booted reports whether Boot has completed.
func (m *LifecycleManager) Booted() bool {
	m.bootMu.Lock()
	defer m.bootMu.Unlock()
	return m.booted
}

// Host returns the host versions the manager gates against.
func (m *LifecycleManager) Host() version.Host {
	return m.cfg.Host
}

// Boot activates every enabled, compatible module in registration order.
// It runs once per process; later calls return the first report.
func (m *LifecycleManager) Boot(ctx context.Context) (BootReport, error) {
	m.bootMu.Lock()
	defer m.bootMu.Unlock()

	if m.booted {
		return m.report, nil
	}

	var report BootReport

	if m.cfg.Host.API == "" {
		m.logger.Error().Msg("host core API not available, no modules booted")
		m.emit(ctx, EventCoreMissing, map[string]any{})
		report.CoreMissing = true
		m.booted = true
		m.report = report
		return report, nil
	}

	enabled, err := m.loadEnabled(ctx)
	if err != nil {
		return report, err
	}
	ledger, err := m.loadLedger(ctx)
	if err != nil {
		return report, err
	}

	ledgerDirty := false
	for _, mod := range m.registry.All() {
		id := mod.ID()

		if !contains(enabled, id) {
			m.setState(id, module.StateDisabled)
			report.Disabled = append(report.Disabled, id)
			continue
		}

		if gateErr := m.gate(ctx, mod); gateErr != nil {
			report.Gated = append(report.Gated, gateErr)
			continue
		}

		if fault := m.boot(ctx, mod, ledger); fault != nil {
			report.Faults = append(report.Faults, *fault)
			continue
		}
		ledgerDirty = true
		report.Active = append(report.Active, id)
	}

	m.booted = true
	m.report = report

	m.logger.Info().
		Int("active", len(report.Active)).
		Int("gated", len(report.Gated)).
		Int("faulted", len(report.Faults)).
		Msg("modules booted")

	if ledgerDirty {
		if err := m.store.Save(ctx, settings.KeyModuleVersions, ledger); err != nil {
			return report, fmt.Errorf("save module versions: %w", err)
		}
	}
	return report, nil
}

// Toggle replaces the enabled set with target and notifies the modules that
// changed. Callback faults are reported but never revert the new set.
func (m *LifecycleManager) Toggle(ctx context.Context, target []string) (ToggleReport, error) {
	var report ToggleReport

	if !m.auth.MayAdminister(ctx) {
		return report, module.ErrUnauthorized
	}

	next := normalizeIDs(target)
	prev, err := m.loadEnabled(ctx)
	if err != nil {
		return report, err
	}

	report.Enabled = next
	report.EnabledNow = difference(next, prev)
	report.DisabledNow = difference(prev, next)

	if err := m.store.Save(ctx, settings.KeyModulesEnabled, next); err != nil {
		return report, fmt.Errorf("save enabled modules: %w", err)
	}

	m.logger.Info().
		Strs("enabled", next).
		Strs("enabled_now", report.EnabledNow).
		Strs("disabled_now", report.DisabledNow).
		Msg("modules toggled")
	m.emit(ctx, EventModulesToggled, map[string]any{
		"enabled":      next,
		"enabled_now":  report.EnabledNow,
		"disabled_now": report.DisabledNow,
	})

	ledger, err := m.loadLedger(ctx)
	if err != nil {
		return report, err
	}
	ledgerDirty := false
	booted := m.Booted()

	for _, id := range report.EnabledNow {
		mod, ok := m.registry.Find(id)
		if !ok {
			m.logger.Debug().Str("module", id).Msg("enabled id has no registered module")
			continue
		}

		if fault := m.run(ctx, mod, module.CallbackOnEnable, mod.OnEnable); fault != nil {
			report.Faults = append(report.Faults, *fault)
			continue
		}

		if booted && m.cfg.BootOnEnable && m.State(id) != module.StateActive {
			if gateErr := m.gate(ctx, mod); gateErr != nil {
				continue
			}
			if fault := m.boot(ctx, mod, ledger); fault != nil {
				report.Faults = append(report.Faults, *fault)
				continue
			}
			ledgerDirty = true
			continue
		}

		// Booted later. A module the host would gate out stays unrecorded.
		if !version.Check(mod.Requirements(), m.cfg.Host).OK() {
			continue
		}
		m.recordVersion(ctx, mod, ledger)
		ledgerDirty = true
	}

	for _, id := range report.DisabledNow {
		mod, ok := m.registry.Find(id)
		if !ok {
			continue
		}
		if fault := m.run(ctx, mod, module.CallbackOnDisable, mod.OnDisable); fault != nil {
			report.Faults = append(report.Faults, *fault)
			continue
		}
		m.setState(id, module.StateDisabled)
	}

	if ledgerDirty {
		if err := m.store.Save(ctx, settings.KeyModuleVersions, ledger); err != nil {
			return report, fmt.Errorf("save module versions: %w", err)
		}
	}
	return report, nil
}

// Uninstall deletes one module's data. The module must not be enabled.
func (m *LifecycleManager) Uninstall(ctx context.Context, id string) (UninstallReport, error) {
	report := UninstallReport{Module: module.NormalizeID(id)}

	if !m.auth.MayAdminister(ctx) {
		return report, module.ErrUnauthorized
	}
	if report.Module == "" {
		return report, module.ErrInvalidID
	}
	id = report.Module

	enabled, err := m.loadEnabled(ctx)
	if err != nil {
		return report, err
	}
	if contains(enabled, id) {
		return report, fmt.Errorf("module %q: %w", id, module.ErrModuleEnabled)
	}

	if mod, ok := m.registry.Find(id); ok {
		report.Registered = true
		report.Fault = m.run(ctx, mod, module.CallbackUninstall, mod.Uninstall)
	}

	ledger, err := m.loadLedger(ctx)
	if err != nil {
		return report, err
	}
	if _, ok := ledger[id]; ok {
		delete(ledger, id)
		if err := m.store.Save(ctx, settings.KeyModuleVersions, ledger); err != nil {
			return report, fmt.Errorf("save module versions: %w", err)
		}
		report.LedgerCleared = true
	}

	m.logger.Info().
		Str("module", id).
		Bool("ledger_cleared", report.LedgerCleared).
		Bool("faulted", report.Fault != nil).
		Msg("module data deleted")
	m.emit(ctx, EventModuleUninstalled, map[string]any{
		"module":         id,
		"ledger_cleared": report.LedgerCleared,
	})

	return report, nil
}

// State returns the current lifecycle state of id.
func (m *LifecycleManager) State(id string) module.State {
	if _, ok := m.registry.Find(id); !ok {
		return module.StateUnregistered
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if st, ok := m.status[id]; ok {
		return st.state
	}
	return module.StateRegistered
}

// Statuses reports every registered module in registration order.
func (m *LifecycleManager) Statuses(ctx context.Context) ([]ModuleStatus, error) {
	enabled, err := m.loadEnabled(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := m.loadLedger(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	mods := m.registry.All()
	out := make([]ModuleStatus, 0, len(mods))
	for _, mod := range mods {
		id := mod.ID()
		s := ModuleStatus{
			Descriptor:    module.Describe(mod),
			State:         module.StateRegistered,
			Enabled:       contains(enabled, id),
			LedgerVersion: ledger[id],
		}
		if st, ok := m.status[id]; ok {
			s.State = st.state
			s.FailedAxes = st.failedAxes
			if st.lastFault != nil {
				s.LastFault = st.lastFault.Error()
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// Enabled returns the persisted enabled set.
func (m *LifecycleManager) Enabled(ctx context.Context) ([]string, error) {
	return m.loadEnabled(ctx)
}

// gate evaluates all three axes and records a gated-out module.
func (m *LifecycleManager) gate(ctx context.Context, mod module.Module) *module.GateError {
	res := version.Check(mod.Requirements(), m.cfg.Host)
	if res.OK() {
		return nil
	}

	id := mod.ID()
	names := res.Names()

	m.mu.Lock()
	m.status[id] = &moduleStatus{state: module.StateGatedOut, failedAxes: names}
	m.mu.Unlock()

	m.logger.Warn().
		Str("module", id).
		Strs("axes", names).
		Msg("module requirements unmet")
	m.emit(ctx, EventModuleGated, map[string]any{
		"module": id,
		"axes":   names,
	})

	return &module.GateError{Module: id, Axes: res.Failed}
}

// boot runs the boot callback and records the version on success.
func (m *LifecycleManager) boot(ctx context.Context, mod module.Module, ledger map[string]string) *module.Fault {
	if fault := m.run(ctx, mod, module.CallbackBoot, mod.Boot); fault != nil {
		return fault
	}

	id := mod.ID()
	m.setState(id, module.StateActive)
	m.logger.Debug().Str("module", id).Str("version", mod.Version()).Msg("module booted")
	m.emit(ctx, EventModuleBooted, map[string]any{"module": id, "version": mod.Version()})

	m.recordVersion(ctx, mod, ledger)
	return nil
}

// recordVersion writes the module version into ledger and reports a first
// activation or a version change against the entry it replaces.
func (m *LifecycleManager) recordVersion(ctx context.Context, mod module.Module, ledger map[string]string) {
	id := mod.ID()
	current := mod.Version()
	prev, seen := ledger[id]
	ledger[id] = current

	switch {
	case !seen:
		m.emit(ctx, EventModuleActivated, map[string]any{"module": id, "version": current})
	case prev != current:
		m.logger.Info().Str("module", id).Str("from", prev).Str("to", current).Msg("module upgraded")
		m.emit(ctx, EventModuleUpgraded, map[string]any{"module": id, "from": prev, "to": current})
	}
}

// run invokes one callback inside failure isolation and records a fault.
func (m *LifecycleManager) run(ctx context.Context, mod module.Module, cb module.Callback, fn func(context.Context) error) *module.Fault {
	id := mod.ID()
	fault := module.Isolate(id, cb, func() error { return fn(ctx) })
	if fault == nil {
		return nil
	}

	m.mu.Lock()
	m.status[id] = &moduleStatus{state: module.StateFaulted, lastFault: fault}
	m.mu.Unlock()

	m.logger.Error().
		Err(fault.Err).
		Str("module", id).
		Str("callback", string(cb)).
		Msg("module callback failed")
	m.emit(ctx, EventModuleFaulted, map[string]any{
		"module":   id,
		"callback": string(cb),
		"error":    fault.Err.Error(),
	})
	return fault
}

func (m *LifecycleManager) setState(id string, state module.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[id] = &moduleStatus{state: state}
}

func (m *LifecycleManager) emit(ctx context.Context, name string, payload map[string]any) {
	if m.events != nil {
		m.events.Emit(ctx, name, payload)
	}
}

// loadEnabled reads the enabled set. A stored value of the wrong shape is
// treated as empty.
func (m *LifecycleManager) loadEnabled(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := m.store.Load(ctx, settings.KeyModulesEnabled, &ids); err != nil {
		if isDecodeError(err) {
			m.logger.Warn().Err(err).Msg("ignoring malformed enabled module list")
			return []string{}, nil
		}
		return nil, fmt.Errorf("load enabled modules: %w", err)
	}
	return normalizeIDs(ids), nil
}

func (m *LifecycleManager) loadLedger(ctx context.Context) (map[string]string, error) {
	ledger := make(map[string]string)
	if _, err := m.store.Load(ctx, settings.KeyModuleVersions, &ledger); err != nil {
		if isDecodeError(err) {
			m.logger.Warn().Err(err).Msg("ignoring malformed module version ledger")
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("load module versions: %w", err)
	}
	if ledger == nil {
		ledger = make(map[string]string)
	}
	return ledger, nil
}

// normalizeIDs sanitizes ids, dropping empties and duplicates while keeping
// first-seen order.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		id := module.NormalizeID(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// difference returns the members of a not in b, in a's order.
func difference(a, b []string) []string {
	out := []string{}
	for _, id := range a {
		if !contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// isDecodeError reports whether err came from a stored value of the wrong
// shape rather than from the store itself.
func isDecodeError(err error) bool {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	return errors.As(err, &typeErr) || errors.As(err, &syntaxErr)
}
