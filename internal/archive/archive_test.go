package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/meetpilot/meetpilot/internal/history"
)

func entry(text string, at time.Time) history.Entry {
	return history.Entry{
		Start:    at,
		Duration: 1200 * time.Millisecond,
		Language: "en",
		Text:     text,
	}
}

func TestAppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := Open(path, "en")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	base := time.Now().Truncate(time.Millisecond)
	if err := s.Append(entry("first", base)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(entry("second", base.Add(5*time.Second))); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.Utterances(s.SessionID())
	if err != nil {
		t.Fatalf("Utterances() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d utterances, want 2", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("order = %q, %q", got[0].Text, got[1].Text)
	}
	if !got[0].Start.Equal(base) {
		t.Errorf("start = %v, want %v", got[0].Start, base)
	}
	if got[0].Duration != 1200*time.Millisecond {
		t.Errorf("duration = %v", got[0].Duration)
	}
}

func TestSessionsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")

	first, err := Open(path, "en")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	firstID := first.SessionID()
	if err := first.Append(entry("run one", time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := Open(path, "it")
	if err != nil {
		t.Fatalf("Open() reopen error = %v", err)
	}
	defer second.Close()

	sessions, err := second.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}

	// The finished run has an end stamp; the live one does not.
	var old *Session
	for i := range sessions {
		if sessions[i].ID == firstID {
			old = &sessions[i]
		}
	}
	if old == nil {
		t.Fatal("first session missing from listing")
	}
	if old.EndedAt == nil {
		t.Error("closed session should have an end time")
	}
	if old.Language != "en" {
		t.Errorf("language = %q, want en", old.Language)
	}

	// Utterances stay scoped to their session.
	got, err := second.Utterances(firstID)
	if err != nil {
		t.Fatalf("Utterances() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "run one" {
		t.Errorf("unexpected transcript for first session: %v", got)
	}
}

func TestUtterancesEmptySession(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"), "en")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	got, err := s.Utterances(s.SessionID())
	if err != nil {
		t.Fatalf("Utterances() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty transcript, got %d entries", len(got))
	}
}
