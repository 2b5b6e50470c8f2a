// Package version provides pure compatibility checks between declared
// minimum versions and the versions a host actually runs.
// This package has NO dependencies on I/O.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Axis names one independent compatibility dimension.
type Axis string

const (
	AxisHostRuntime     Axis = "host runtime"
	AxisHostAPI         Axis = "host API"
	AxisLanguageRuntime Axis = "language runtime"
)

// Axes lists every axis in evaluation order.
var Axes = []Axis{AxisHostRuntime, AxisHostAPI, AxisLanguageRuntime}

// Requirements are the minimum versions a module declares (value type).
type Requirements struct {
	HostRuntime     string
	HostAPI         string
	LanguageRuntime string
}

// Host describes the versions the running host provides (value type).
type Host struct {
	Runtime         string `json:"runtime" yaml:"runtime"`
	API             string `json:"api" yaml:"api"`
	LanguageRuntime string `json:"language_runtime" yaml:"language_runtime"`
}

// Result is the outcome of a gate check (value type).
type Result struct {
	Failed []Axis
}

// OK reports whether every axis passed.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Names returns the failing axis names as strings.
func (r Result) Names() []string {
	names := make([]string, len(r.Failed))
	for i, a := range r.Failed {
		names[i] = string(a)
	}
	return names
}

// Check evaluates all three axes independently and collects the failures.
func Check(req Requirements, host Host) Result {
	var res Result
	if !Compatible(req.HostRuntime, host.Runtime) {
		res.Failed = append(res.Failed, AxisHostRuntime)
	}
	if !Compatible(req.HostAPI, host.API) {
		res.Failed = append(res.Failed, AxisHostAPI)
	}
	if !Compatible(req.LanguageRuntime, host.LanguageRuntime) {
		res.Failed = append(res.Failed, AxisLanguageRuntime)
	}
	return res
}

// Compatible reports whether actual >= min under semantic version ordering.
// Malformed input on either side is incompatible.
func Compatible(min, actual string) bool {
	minNorm, ok := Normalize(min)
	if !ok {
		return false
	}
	actualNorm, ok := Normalize(actual)
	if !ok {
		return false
	}
	return semver.Compare(actualNorm, minNorm) >= 0
}

// Normalize adds the "v" prefix the semver package expects and validates
// the result. Short forms such as "6.5" are accepted.
func Normalize(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}
