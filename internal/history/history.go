// Package history holds the shared conversation log.
package history

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one immutable transcript record.
type Entry struct {
	Start    time.Time
	Duration time.Duration
	Language string
	Text     string
}

// Event mirrors an appended entry for live consumers (the feed server).
type Event struct {
	Start time.Time `json:"start"`
	Text  string    `json:"text"`
}

// Log is the append-only conversation history. A single mutex serializes the
// writer (transcription committer) against readers (suggestion dispatch,
// feed server) and the clear path; snapshots always observe whole entries.
//
// Invariant: entries are in non-decreasing Start order.
type Log struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	eventsCh   chan Event
}

// New creates a history log bounded to maxEntries (0 = unbounded).
func New(maxEntries int) *Log {
	return &Log{
		maxEntries: maxEntries,
		eventsCh:   make(chan Event, 64),
	}
}

// Append adds an entry, keeping the start-timestamp order invariant even if
// a caller hands entries over slightly out of order.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	n := len(l.entries)
	if n == 0 || !e.Start.Before(l.entries[n-1].Start) {
		l.entries = append(l.entries, e)
	} else {
		i := sort.Search(n, func(i int) bool { return l.entries[i].Start.After(e.Start) })
		l.entries = append(l.entries, Entry{})
		copy(l.entries[i+1:], l.entries[i:])
		l.entries[i] = e
	}
	if l.maxEntries > 0 && len(l.entries) > l.maxEntries {
		l.entries = append([]Entry(nil), l.entries[len(l.entries)-l.maxEntries:]...)
	}
	l.mu.Unlock()

	l.emit(Event{Start: e.Start, Text: e.Text})
}

// Snapshot returns a copy of the last n entries, or all entries when n <= 0.
// The returned slice is owned by the caller.
func (l *Log) Snapshot(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.entries
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear atomically replaces the history with an empty sequence and returns
// the number of entries removed. Idempotent.
func (l *Log) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	l.entries = nil
	return n
}

// Render joins a snapshot into one text block, one entry per line.
func Render(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Text)
	}
	return b.String()
}

// Events returns the channel of appended-entry events.
func (l *Log) Events() <-chan Event { return l.eventsCh }

// emit is non-blocking; a slow feed consumer never stalls the committer.
func (l *Log) emit(ev Event) {
	select {
	case l.eventsCh <- ev:
	default:
	}
}
