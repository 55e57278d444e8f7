// Package logfile appends transcript lines to a plain-text conversation log.
package logfile

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Appender writes one timestamped line per transcript entry. Writes happen
// on a dedicated goroutine so a slow disk never backs up the transcription
// committer.
type Appender struct {
	path string

	lines     chan line
	done      chan struct{}
	closeOnce sync.Once
}

type line struct {
	at   time.Time
	text string
}

// New opens (or creates) the log at path and starts the writer.
func New(path string) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open conversation log: %w", err)
	}

	a := &Appender{
		path:  path,
		lines: make(chan line, 64),
		done:  make(chan struct{}),
	}
	go a.writeLoop(f)
	return a, nil
}

// Path returns the log file location.
func (a *Appender) Path() string { return a.path }

// Append queues a transcript line. Drops with a warning if the writer has
// fallen more than a buffer behind; the transcript in memory stays intact.
func (a *Appender) Append(at time.Time, text string) {
	select {
	case a.lines <- line{at: at, text: text}:
	default:
		slog.Warn("conversation log writer lagging, dropping line", "path", a.path)
	}
}

func (a *Appender) writeLoop(f *os.File) {
	defer close(a.done)
	defer f.Close()

	for l := range a.lines {
		if _, err := fmt.Fprintf(f, "[%s] %s\n", l.at.Format(timeLayout), l.text); err != nil {
			slog.Error("conversation log write failed", "path", a.path, "error", err)
		}
	}
	if err := f.Sync(); err != nil {
		slog.Error("conversation log sync failed", "path", a.path, "error", err)
	}
}

// Close flushes queued lines and closes the file.
func (a *Appender) Close() {
	a.closeOnce.Do(func() {
		close(a.lines)
		<-a.done
	})
}
