package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Notice is an operator-facing message about a module problem.
type Notice struct {
	Level   string    `json:"level"`
	Module  string    `json:"module,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// DefaultNoticeLimit bounds how many notices a board retains.
const DefaultNoticeLimit = 100

// NoticeBoard keeps the most recent gate failures and callback faults for
// display in the admin API.
type NoticeBoard struct {
	mu      sync.RWMutex
	notices []Notice
	limit   int
}

// NewNoticeBoard creates a notice board retaining up to limit notices.
func NewNoticeBoard(limit int) *NoticeBoard {
	if limit <= 0 {
		limit = DefaultNoticeLimit
	}
	return &NoticeBoard{limit: limit}
}

// Attach subscribes the board to the events it reports on.
func (n *NoticeBoard) Attach(bus *Bus) {
	bus.Subscribe("module.gated", n.handle)
	bus.Subscribe("module.faulted", n.handle)
	bus.Subscribe("host.core_missing", n.handle)
}

func (n *NoticeBoard) handle(ctx context.Context, event Event) error {
	notice := Notice{Module: event.Module, Time: event.Time}

	switch event.Name {
	case "module.gated":
		notice.Level = "warning"
		notice.Message = fmt.Sprintf("Module %q was not loaded: requires a newer %s.",
			event.Module, joinAxes(event.Data["axes"]))
	case "module.faulted":
		notice.Level = "error"
		notice.Message = fmt.Sprintf("Module %q failed during %v: %v",
			event.Module, event.Data["callback"], event.Data["error"])
	case "host.core_missing":
		notice.Level = "error"
		notice.Message = "Core API is not available; no modules were loaded."
	default:
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	if over := len(n.notices) - n.limit; over > 0 {
		n.notices = append([]Notice(nil), n.notices[over:]...)
	}
	return nil
}

// List returns the retained notices, oldest first.
func (n *NoticeBoard) List() []Notice {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Notice{}, n.notices...)
}

// Clear drops every notice.
func (n *NoticeBoard) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = nil
}

func joinAxes(v any) string {
	switch axes := v.(type) {
	case []string:
		return strings.Join(axes, ", ")
	case []any:
		parts := make([]string, 0, len(axes))
		for _, a := range axes {
			parts = append(parts, fmt.Sprint(a))
		}
		return strings.Join(parts, ", ")
	}
	return "host"
}
