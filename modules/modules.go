// Package modules holds the built-in modules compiled into the suite.
package modules

import "github.com/revmura/revmura-suite/domain/version"

// Requirements are the host minimums shared by the built-in modules.
var Requirements = version.Requirements{
	HostRuntime:     "6.5",
	HostAPI:         "1.0.0",
	LanguageRuntime: "8.3",
}
