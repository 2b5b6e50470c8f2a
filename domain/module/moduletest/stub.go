// Package moduletest provides a configurable module for tests.
package moduletest

import (
	"context"
	"sync"

	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/domain/version"
)

// Stub is a module whose callbacks record calls and return the configured
// errors. Set a Panic* field to make the callback panic instead.
type Stub struct {
	IDValue      string
	LabelValue   string
	VersionValue string
	Req          version.Requirements

	BootErr      error
	EnableErr    error
	DisableErr   error
	UninstallErr error
	PanicOn      module.Callback

	mu    sync.Mutex
	calls map[module.Callback]int
}

// New returns a stub that requires nothing newer than 1.0.0 on every axis.
func New(id, ver string) *Stub {
	return &Stub{
		IDValue:      id,
		LabelValue:   id,
		VersionValue: ver,
		Req:          version.Requirements{HostRuntime: "1.0.0", HostAPI: "1.0.0", LanguageRuntime: "1.0.0"},
	}
}

func (s *Stub) ID() string                         { return s.IDValue }
func (s *Stub) Label() string                      { return s.LabelValue }
func (s *Stub) Version() string                    { return s.VersionValue }
func (s *Stub) Requirements() version.Requirements { return s.Req }
func (s *Stub) Boot(ctx context.Context) error     { return s.call(module.CallbackBoot, s.BootErr) }
func (s *Stub) OnEnable(ctx context.Context) error { return s.call(module.CallbackOnEnable, s.EnableErr) }
func (s *Stub) OnDisable(ctx context.Context) error {
	return s.call(module.CallbackOnDisable, s.DisableErr)
}
func (s *Stub) Uninstall(ctx context.Context) error {
	return s.call(module.CallbackUninstall, s.UninstallErr)
}

// Calls returns how many times cb ran.
func (s *Stub) Calls(cb module.Callback) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[cb]
}

func (s *Stub) call(cb module.Callback, err error) error {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[module.Callback]int)
	}
	s.calls[cb]++
	s.mu.Unlock()

	if s.PanicOn == cb {
		panic("stub panic in " + string(cb))
	}
	return err
}

var _ module.Module = (*Stub)(nil)
