// Package module defines the module contract, lifecycle states and the
// error taxonomy shared by the lifecycle engine and its callers.
package module

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revmura/revmura-suite/domain/version"
)

// Module is a unit of optional functionality with its own version and
// lifecycle callbacks. Concrete modules live under modules/.
type Module interface {
	// ID is the unique, stable slug.
	ID() string
	Label() string
	// Version is the module's semantic version (e.g. "1.2.0").
	Version() string
	// Requirements returns the minimum host versions the module needs.
	Requirements() version.Requirements

	// Boot registers the module's runtime behavior. Called for enabled,
	// compatible modules when the host boots, and again each time such a
	// module is enabled at runtime, so it must tolerate repeated calls.
	Boot(ctx context.Context) error
	// OnEnable runs when an operator enables the module.
	OnEnable(ctx context.Context) error
	// OnDisable runs when an operator disables the module.
	OnDisable(ctx context.Context) error
	// Uninstall deletes all module-owned data. Must be idempotent.
	Uninstall(ctx context.Context) error
}

// Descriptor is the immutable catalog view of a module (value type).
type Descriptor struct {
	ID                 string `json:"id"`
	Label              string `json:"label"`
	Version            string `json:"version"`
	MinHostRuntime     string `json:"min_host_runtime"`
	MinHostAPI         string `json:"min_host_api"`
	MinLanguageRuntime string `json:"min_language_runtime"`
}

// Describe captures a module's descriptor.
func Describe(m Module) Descriptor {
	req := m.Requirements()
	return Descriptor{
		ID:                 m.ID(),
		Label:              m.Label(),
		Version:            m.Version(),
		MinHostRuntime:     req.HostRuntime,
		MinHostAPI:         req.HostAPI,
		MinLanguageRuntime: req.LanguageRuntime,
	}
}

// Requirements converts the descriptor minimums back into gate input.
func (d Descriptor) Requirements() version.Requirements {
	return version.Requirements{
		HostRuntime:     d.MinHostRuntime,
		HostAPI:         d.MinHostAPI,
		LanguageRuntime: d.MinLanguageRuntime,
	}
}

// State is a module's lifecycle state at a point in time.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered   State = "registered"
	StateGatedOut     State = "gated_out"
	StateDisabled     State = "disabled"
	StateActive       State = "active"
	StateFaulted      State = "faulted"
)

// Callback names one lifecycle hook.
type Callback string

const (
	CallbackBoot      Callback = "boot"
	CallbackOnEnable  Callback = "on_enable"
	CallbackOnDisable Callback = "on_disable"
	CallbackUninstall Callback = "uninstall"
)

// Errors surfaced to callers before any state change.
var (
	ErrUnauthorized  = errors.New("actor may not administer modules")
	ErrPrecondition  = errors.New("precondition violated")
	ErrModuleEnabled = fmt.Errorf("%w: module must be disabled before its data can be deleted", ErrPrecondition)
	ErrInvalidID     = errors.New("invalid module id")
)

// GateError reports which version axes a module failed.
type GateError struct {
	Module string
	Axes   []version.Axis
}

func (e *GateError) Error() string {
	names := make([]string, len(e.Axes))
	for i, a := range e.Axes {
		names[i] = string(a)
	}
	return fmt.Sprintf("module %q requirements unmet: %s", e.Module, strings.Join(names, ", "))
}

// Fault is the captured failure of exactly one callback invocation.
type Fault struct {
	Module   string
	Callback Callback
	Err      error
}

func (f Fault) Error() string {
	return fmt.Sprintf("module %q %s failed: %v", f.Module, f.Callback, f.Err)
}

func (f Fault) Unwrap() error {
	return f.Err
}

// Isolate runs fn and converts a returned error or a panic into a Fault.
// It returns nil when fn succeeds.
func Isolate(id string, cb Callback, fn func() error) (fault *Fault) {
	defer func() {
		if r := recover(); r != nil {
			fault = &Fault{Module: id, Callback: cb, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &Fault{Module: id, Callback: cb, Err: err}
	}
	return nil
}

// NormalizeID lowercases an id and keeps only [a-z0-9_-].
func NormalizeID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
