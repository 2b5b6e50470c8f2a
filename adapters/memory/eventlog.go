package memory

import (
	"context"
	"sync"

	"github.com/revmura/revmura-suite/ports"
)

// Emitted is one recorded event.
type Emitted struct {
	Name    string
	Payload map[string]any
}

// EventLog records emitted events (for testing).
type EventLog struct {
	mu     sync.Mutex
	events []Emitted
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Emit records the event.
func (l *EventLog) Emit(ctx context.Context, name string, payload map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Emitted{Name: name, Payload: payload})
}

// Named returns the recorded events with the given name, in order.
func (l *EventLog) Named(name string) []Emitted {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Emitted
	for _, e := range l.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// All returns every recorded event in order.
func (l *EventLog) All() []Emitted {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Emitted(nil), l.events...)
}

// Ensure interface compliance.
var _ ports.EventSink = (*EventLog)(nil)
