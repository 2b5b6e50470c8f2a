package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/revmura/revmura-suite/adapters/clock"
	"github.com/revmura/revmura-suite/adapters/idgen"
	"github.com/rs/zerolog"
)

// testLogger returns a disabled logger for tests
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNewBus(t *testing.T) {
	bus := NewBus(testLogger())

	if bus.handlers == nil {
		t.Fatal("handlers map not initialized")
	}
	if len(bus.handlers) != 0 {
		t.Error("handlers map should be empty on creation")
	}
}

func TestSubscribeMultipleHandlersRunInOrder(t *testing.T) {
	bus := NewBus(testLogger())

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.Subscribe("module.booted", func(ctx context.Context, event Event) error {
			order = append(order, i)
			return nil
		})
	}

	bus.Publish(context.Background(), Event{Name: "module.booted"})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestPublishMatching(t *testing.T) {
	tests := []struct {
		name      string
		subscribe string
		publish   string
		want      bool
	}{
		{"exact", "module.booted", "module.booted", true},
		{"no match", "module.booted", "module.gated", false},
		{"prefix wildcard", "module.*", "module.faulted", true},
		{"prefix wildcard other prefix", "module.*", "schema.committed", false},
		{"plural prefix is distinct", "module.*", "modules.toggled", false},
		{"global wildcard", "*", "host.core_missing", true},
		{"single part name", "*", "ping", true},
		{"single part no prefix match", "ping.*", "ping", false},
		{"deep name uses first part", "module.*", "module.a.b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(testLogger())
			called := false
			bus.Subscribe(tt.subscribe, func(ctx context.Context, event Event) error {
				called = true
				return nil
			})

			bus.Publish(context.Background(), Event{Name: tt.publish})

			if called != tt.want {
				t.Errorf("called = %v, want %v", called, tt.want)
			}
			if got := bus.HasSubscribers(tt.publish); got != tt.want {
				t.Errorf("HasSubscribers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishAllMatchingLevels(t *testing.T) {
	bus := NewBus(testLogger())

	var calls []string
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		calls = append(calls, "global")
		return nil
	})
	bus.Subscribe("module.*", func(ctx context.Context, e Event) error {
		calls = append(calls, "prefix")
		return nil
	})
	bus.Subscribe("module.gated", func(ctx context.Context, e Event) error {
		calls = append(calls, "exact")
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "module.gated"})

	if got := strings.Join(calls, ","); got != "exact,prefix,global" {
		t.Errorf("calls = %s, want exact,prefix,global", got)
	}
}

func TestPublishHandlerErrorContinues(t *testing.T) {
	bus := NewBus(testLogger())

	second := false
	bus.Subscribe("schema.committed", func(ctx context.Context, e Event) error {
		return errors.New("handler failed")
	})
	bus.Subscribe("schema.committed", func(ctx context.Context, e Event) error {
		second = true
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "schema.committed"})

	if !second {
		t.Error("second handler should run after the first fails")
	}
}

func TestEmitBuildsEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus := NewBus(testLogger(),
		WithIDGenerator(idgen.NewSequential("evt_")),
		WithClock(clock.NewFake(now)),
	)

	var got []Event
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	bus.Emit(context.Background(), "module.booted", map[string]any{"module": "cpt", "version": "1.0.0"})
	bus.Emit(context.Background(), "modules.toggled", map[string]any{"enabled": []string{"cpt"}})

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].ID != "evt_1" || got[1].ID != "evt_2" {
		t.Errorf("ids = %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Module != "cpt" {
		t.Errorf("Module = %q, want cpt", got[0].Module)
	}
	if got[1].Module != "" {
		t.Errorf("Module = %q, want empty", got[1].Module)
	}
	if !got[0].Time.Equal(now) {
		t.Errorf("Time = %v, want %v", got[0].Time, now)
	}
	if got[0].Data["version"] != "1.0.0" {
		t.Errorf("Data = %v", got[0].Data)
	}
}

func TestEmitWithoutOptions(t *testing.T) {
	bus := NewBus(testLogger())

	var event Event
	bus.Subscribe("x", func(ctx context.Context, e Event) error {
		event = e
		return nil
	})
	bus.Emit(context.Background(), "x", nil)

	if event.ID != "" {
		t.Errorf("ID = %q, want empty without a generator", event.ID)
	}
	if event.Time.IsZero() {
		t.Error("Time should default to now")
	}
}

func TestPublishWithContext(t *testing.T) {
	bus := NewBus(testLogger())

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var seen any
	bus.Subscribe("x", func(ctx context.Context, e Event) error {
		seen = ctx.Value(key{})
		return nil
	})
	bus.Publish(ctx, Event{Name: "x"})

	if seen != "v" {
		t.Errorf("context value = %v, want v", seen)
	}
}

func TestHandlerMaySubscribe(t *testing.T) {
	bus := NewBus(testLogger())

	bus.Subscribe("x", func(ctx context.Context, e Event) error {
		bus.Subscribe("y", func(ctx context.Context, e Event) error { return nil })
		return nil
	})

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), Event{Name: "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish deadlocked when a handler subscribed")
	}
	if !bus.HasSubscribers("y") {
		t.Error("nested subscription should be registered")
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus(testLogger())

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe("load.test", func(ctx context.Context, e Event) error {
				atomic.AddInt64(&count, 1)
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Name: "load.test"})
		}()
	}
	wg.Wait()

	atomic.StoreInt64(&count, 0)
	bus.Publish(context.Background(), Event{Name: "load.test"})
	if got := atomic.LoadInt64(&count); got != 10 {
		t.Errorf("handlers called = %d, want 10", got)
	}
}

func TestNoticeBoard(t *testing.T) {
	bus := NewBus(testLogger())
	board := NewNoticeBoard(0)
	board.Attach(bus)
	ctx := context.Background()

	bus.Emit(ctx, "module.gated", map[string]any{"module": "cpt", "axes": []string{"host runtime", "host API"}})
	bus.Emit(ctx, "module.faulted", map[string]any{"module": "hello", "callback": "boot", "error": "boom"})
	bus.Emit(ctx, "module.booted", map[string]any{"module": "multilang"})
	bus.Emit(ctx, "host.core_missing", map[string]any{})

	notices := board.List()
	if len(notices) != 3 {
		t.Fatalf("notices = %d, want 3", len(notices))
	}
	if notices[0].Level != "warning" || !strings.Contains(notices[0].Message, "host runtime, host API") {
		t.Errorf("gated notice = %+v", notices[0])
	}
	if notices[1].Level != "error" || notices[1].Module != "hello" || !strings.Contains(notices[1].Message, "boom") {
		t.Errorf("fault notice = %+v", notices[1])
	}
	if !strings.Contains(notices[2].Message, "Core API") {
		t.Errorf("core notice = %+v", notices[2])
	}

	board.Clear()
	if len(board.List()) != 0 {
		t.Error("Clear should drop notices")
	}
}

func TestNoticeBoardLimit(t *testing.T) {
	bus := NewBus(testLogger())
	board := NewNoticeBoard(2)
	board.Attach(bus)

	for _, id := range []string{"a", "b", "c"} {
		bus.Emit(context.Background(), "module.gated", map[string]any{"module": id, "axes": []any{"host API"}})
	}

	notices := board.List()
	if len(notices) != 2 || notices[0].Module != "b" || notices[1].Module != "c" {
		t.Errorf("notices = %+v, want the two most recent", notices)
	}
}

func TestLogDiagnostics(t *testing.T) {
	var buf strings.Builder
	logger := zerolog.New(&buf)
	bus := NewBus(testLogger())
	LogDiagnostics(bus, logger)
	ctx := context.Background()

	bus.Emit(ctx, "module.gated", map[string]any{"module": "cpt", "axes": []string{"host API"}})
	bus.Emit(ctx, "module.faulted", map[string]any{"module": "hello", "callback": "boot", "error": "boom"})
	bus.Emit(ctx, "schema.committed", map[string]any{"snapshot": map[string]any{"cpts": "big"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"warn"`) || !strings.Contains(lines[0], `"module":"cpt"`) {
		t.Errorf("gated line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"error"`) || !strings.Contains(lines[1], `"callback":"boot"`) {
		t.Errorf("fault line = %s", lines[1])
	}
	if strings.Contains(lines[2], "big") {
		t.Errorf("snapshot payload should not be logged: %s", lines[2])
	}
}
