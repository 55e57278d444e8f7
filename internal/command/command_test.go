package command

import (
	"testing"
	"time"
)

func drain(l *Listener) []Command {
	var out []Command
	for {
		select {
		case c := <-l.Commands():
			out = append(out, c)
		default:
			return out
		}
	}
}

func TestDispatchDelivers(t *testing.T) {
	l := NewListener(4, 100*time.Millisecond)
	l.Dispatch(RequestSuggestions)

	got := drain(l)
	if len(got) != 1 || got[0] != RequestSuggestions {
		t.Fatalf("got %v, want [suggestions]", got)
	}
}

func TestDebounceSuppressesRepeat(t *testing.T) {
	l := NewListener(8, 300*time.Millisecond)
	now := time.Now()
	l.now = func() time.Time { return now }

	// Key-repeat: same chord fires rapidly while held.
	for i := 0; i < 5; i++ {
		l.Dispatch(RequestSummary)
		now = now.Add(20 * time.Millisecond)
	}
	if got := drain(l); len(got) != 1 {
		t.Errorf("expected 1 command from a held chord, got %d", len(got))
	}

	// A fresh press after the window dispatches again.
	now = now.Add(time.Second)
	l.Dispatch(RequestSummary)
	if got := drain(l); len(got) != 1 {
		t.Errorf("fresh press suppressed: got %d", len(got))
	}
}

func TestDebounceIsPerCommand(t *testing.T) {
	l := NewListener(8, 300*time.Millisecond)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Dispatch(RequestSuggestions)
	l.Dispatch(Exit)

	got := drain(l)
	if len(got) != 2 {
		t.Fatalf("distinct commands inside the window should both pass, got %v", got)
	}
}

func TestQueueBound(t *testing.T) {
	l := NewListener(2, time.Nanosecond)
	now := time.Now()
	l.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	for i := 0; i < 10; i++ {
		l.Dispatch(ClearHistory)
	}
	if got := drain(l); len(got) != 2 {
		t.Errorf("queue should hold at most 2, got %d", len(got))
	}
}

func TestCommandString(t *testing.T) {
	if RequestSuggestions.String() != "suggestions" || Exit.String() != "exit" {
		t.Error("unexpected command names")
	}
	if Command(99).String() != "unknown" {
		t.Error("out-of-range command should stringify as unknown")
	}
}
