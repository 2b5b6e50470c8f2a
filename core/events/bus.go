// Package events provides the host's publish/subscribe event bus.
// The bus is the EventSink handed to the lifecycle manager and the schema
// store; subscribers keep caches, counters and operator notices in sync.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/revmura/revmura-suite/ports"
	"github.com/rs/zerolog"
)

// Event represents a published event.
type Event struct {
	// ID uniquely identifies this emission.
	ID string

	// Name is the event name (e.g., "module.booted", "schema.committed").
	Name string

	// Module is the module the event concerns, if any.
	Module string

	// Data contains the event payload.
	Data map[string]any

	// Time is when the event was emitted.
	Time time.Time
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a synchronous publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
	ids      ports.IDGenerator
	clock    ports.Clock
}

// Option configures a Bus.
type Option func(*Bus)

// WithIDGenerator assigns event ids from gen.
func WithIDGenerator(gen ports.IDGenerator) Option {
	return func(b *Bus) { b.ids = gen }
}

// WithClock stamps events using c.
func WithClock(c ports.Clock) Option {
	return func(b *Bus) { b.clock = c }
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger, opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "module.booted" - exact match
//   - "module.*" - all module events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit implements ports.EventSink.
func (b *Bus) Emit(ctx context.Context, name string, payload map[string]any) {
	event := Event{
		Name: name,
		Data: payload,
	}
	if m, ok := payload["module"].(string); ok {
		event.Module = m
	}
	if b.ids != nil {
		event.ID = b.ids.New()
	}
	if b.clock != nil {
		event.Time = b.clock.Now()
	} else {
		event.Time = time.Now()
	}
	b.Publish(ctx, event)
}

// Publish delivers an event to all matching handlers.
// Handlers are called synchronously in registration order.
// If any handler returns an error, publishing continues but errors are logged.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	matched := b.match(event.Name)
	b.mu.RUnlock()

	b.logger.Debug().
		Str("event", event.Name).
		Str("event_id", event.ID).
		Str("module", event.Module).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.match(event)) > 0
}

// match collects handlers for name: exact, then prefix wildcard, then global.
// Callers hold b.mu.
func (b *Bus) match(name string) []Handler {
	var matched []Handler

	matched = append(matched, b.handlers[name]...)

	if prefix, _, ok := strings.Cut(name, "."); ok {
		matched = append(matched, b.handlers[prefix+".*"]...)
	}

	matched = append(matched, b.handlers["*"]...)
	return matched
}

// Ensure interface compliance.
var _ ports.EventSink = (*Bus)(nil)
