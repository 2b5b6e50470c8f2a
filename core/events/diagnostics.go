package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDiagnostics writes every event to logger. Gate failures log as
// warnings, faults and a missing core as errors. Snapshot payloads are
// left out.
func LogDiagnostics(bus *Bus, logger zerolog.Logger) {
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		var ev *zerolog.Event
		switch e.Name {
		case "module.gated":
			ev = logger.Warn()
		case "module.faulted", "host.core_missing":
			ev = logger.Error()
		default:
			ev = logger.Info()
		}

		fields := make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			if k == "snapshot" || k == "module" {
				continue
			}
			fields[k] = v
		}

		ev.Str("event", e.Name).
			Str("event_id", e.ID).
			Str("module", e.Module).
			Fields(fields).
			Msg("lifecycle event")
		return nil
	})
}
