// Package command translates operator trigger events into pipeline commands.
package command

import (
	"log/slog"
	"sync"
	"time"
)

// Command is a tagged operator request. Carries no payload; consumed exactly
// once by the orchestrator.
type Command int

const (
	RequestSuggestions Command = iota
	RequestSummary
	ClearHistory
	Exit
)

var commandNames = map[Command]string{
	RequestSuggestions: "suggestions",
	RequestSummary:     "summary",
	ClearHistory:       "clear",
	Exit:               "exit",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return "unknown"
}

// Listener buffers commands between the trigger source (global hotkeys) and
// the orchestrator's single consumer loop. Pure event translation: no
// business logic. A bounded queue holds commands until dequeued, and a
// per-command debounce keeps one physical chord from dispatching twice
// (key-repeat fires the hook handler repeatedly while keys are held).
type Listener struct {
	ch       chan Command
	debounce time.Duration

	mu       sync.Mutex
	lastSeen map[Command]time.Time
	now      func() time.Time
}

// NewListener creates a listener with the given queue capacity and duplicate
// suppression window.
func NewListener(capacity int, debounce time.Duration) *Listener {
	return &Listener{
		ch:       make(chan Command, capacity),
		debounce: debounce,
		lastSeen: make(map[Command]time.Time),
		now:      time.Now,
	}
}

// Commands returns the queue consumed by the orchestrator.
func (l *Listener) Commands() <-chan Command { return l.ch }

// Dispatch enqueues a command. Duplicates inside the debounce window and
// overflow beyond the queue bound are ignored; command dispatch is
// idempotent, so dropping a duplicate is safe.
func (l *Listener) Dispatch(cmd Command) {
	l.mu.Lock()
	now := l.now()
	if last, ok := l.lastSeen[cmd]; ok && now.Sub(last) < l.debounce {
		l.mu.Unlock()
		return
	}
	l.lastSeen[cmd] = now
	l.mu.Unlock()

	select {
	case l.ch <- cmd:
	default:
		slog.Warn("command queue full, dropping command", "command", cmd)
	}
}
