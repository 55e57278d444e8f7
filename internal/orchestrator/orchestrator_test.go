package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meetpilot/meetpilot/internal/capture"
	"github.com/meetpilot/meetpilot/internal/command"
	"github.com/meetpilot/meetpilot/internal/config"
	apperrors "github.com/meetpilot/meetpilot/internal/errors"
	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/notify"
	"github.com/meetpilot/meetpilot/internal/stt"
)

func testConfig() *config.Config {
	return &config.Config{
		SampleRate:       16000,
		FrameSize:        800, // 50ms
		VoiceThreshold:   0.02,
		OnsetFrames:      2,
		SilenceGapMs:     600,
		MinUtteranceMs:   250,
		MaxUtteranceMs:   30000,
		Language:         "en",
		QueueCapacity:    8,
		STTWorkers:       2,
		ContextWindow:    20,
		RequestTimeoutMs: 1000,
	}
}

// fakeSource feeds scripted frames. fail simulates device loss.
type fakeSource struct {
	frames   chan capture.Frame
	err      error
	stopOnce sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan capture.Frame)}
}

func (f *fakeSource) Start(context.Context) error  { return nil }
func (f *fakeSource) Frames() <-chan capture.Frame { return f.frames }
func (f *fakeSource) Err() error                   { return f.err }
func (f *fakeSource) Stop()                        { f.stopOnce.Do(func() { close(f.frames) }) }
func (f *fakeSource) fail(err error)               { f.err = err; f.Stop() }

func frameAt(i int, voiced bool, base time.Time) capture.Frame {
	samples := make([]float32, 800)
	if voiced {
		for j := range samples {
			samples[j] = 0.1
		}
	}
	return capture.Frame{
		Seq:     uint64(i),
		Samples: samples,
		Time:    base.Add(time.Duration(i) * 50 * time.Millisecond),
	}
}

type fakeEngine struct{ text string }

func (f *fakeEngine) Transcribe(_ context.Context, _ []float32, lang string) (stt.Result, error) {
	return stt.Result{Text: f.text, Language: lang}, nil
}

type fakeAI struct {
	sugs []string
	sum  string
	err  error
}

func (f *fakeAI) Suggestions(context.Context, []history.Entry) ([]string, error) {
	return f.sugs, f.err
}

func (f *fakeAI) Summary(context.Context, []history.Entry) (string, error) {
	return f.sum, f.err
}

type note struct {
	title   string
	body    string
	urgency notify.Urgency
}

// recordingSink captures notifications and lets tests wait for one by title.
type recordingSink struct {
	mu    sync.Mutex
	notes []note
	ch    chan note
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan note, 32)}
}

func (s *recordingSink) Display(title, body string, urgency notify.Urgency) {
	n := note{title: title, body: body, urgency: urgency}
	s.mu.Lock()
	s.notes = append(s.notes, n)
	s.mu.Unlock()
	s.ch <- n
}

func (s *recordingSink) wait(t *testing.T, title string) note {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-s.ch:
			if n.title == title {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for notification %q; saw %v", title, s.titles())
		}
	}
}

func (s *recordingSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.title
	}
	return out
}

func (s *recordingSink) count(title string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := 0
	for _, n := range s.notes {
		if n.title == title {
			c++
		}
	}
	return c
}

func start(t *testing.T, src Source, engine stt.Engine, ai AI, sink notify.Sink) (*Assistant, *command.Listener, chan error) {
	t.Helper()
	listener := command.NewListener(8, time.Nanosecond)
	a := New(testConfig(), src, engine, ai, sink, listener, nil)
	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()
	return a, listener, done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("assistant did not shut down")
		return nil
	}
}

func TestSpeechBecomesHistory(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	a, listener, done := start(t, src, &fakeEngine{text: "hello there"}, &fakeAI{}, sink)

	base := time.Now()
	i := 0
	for ; i < 20; i++ { // 1s of speech
		src.frames <- frameAt(i, true, base)
	}
	for ; i < 33; i++ { // 650ms of silence closes the utterance
		src.frames <- frameAt(i, false, base)
	}

	listener.Dispatch(command.Exit)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	snap := a.History().Snapshot(0)
	if len(snap) != 1 {
		t.Fatalf("history has %d entries, want 1", len(snap))
	}
	if snap[0].Text != "hello there" {
		t.Errorf("entry text = %q", snap[0].Text)
	}
}

func TestExitFlushesInFlightUtterance(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	a, listener, done := start(t, src, &fakeEngine{text: "tail end"}, &fakeAI{}, sink)

	base := time.Now()
	for i := 0; i < 20; i++ { // speech still open when exit arrives
		src.frames <- frameAt(i, true, base)
	}

	listener.Dispatch(command.Exit)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	snap := a.History().Snapshot(0)
	if len(snap) != 1 || snap[0].Text != "tail end" {
		t.Errorf("flushed utterance missing: %v", snap)
	}
}

func TestExitDiscardsSubMinimumUtterance(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	a, listener, done := start(t, src, &fakeEngine{text: "blip"}, &fakeAI{}, sink)

	base := time.Now()
	for i := 0; i < 2; i++ { // 100ms, below the 250ms minimum
		src.frames <- frameAt(i, true, base)
	}

	listener.Dispatch(command.Exit)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if n := a.History().Len(); n != 0 {
		t.Errorf("sub-minimum speech produced %d entries, want 0", n)
	}
}

func TestSuggestionsDelivered(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	ai := &fakeAI{sugs: []string{"ask about pricing", "confirm the date"}}
	a, listener, done := start(t, src, &fakeEngine{text: "x"}, ai, sink)

	a.History().Append(history.Entry{Start: time.Now(), Text: "we should talk pricing"})
	listener.Dispatch(command.RequestSuggestions)

	n := sink.wait(t, "AI Suggestions")
	if n.body != "1. ask about pricing\n2. confirm the date" {
		t.Errorf("suggestion body = %q", n.body)
	}

	listener.Dispatch(command.Exit)
	waitDone(t, done)
}

func TestEmptyHistoryWarns(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	_, listener, done := start(t, src, &fakeEngine{text: "x"}, &fakeAI{}, sink)

	listener.Dispatch(command.RequestSuggestions)
	n := sink.wait(t, "No Conversation")
	if n.urgency != notify.Warning {
		t.Errorf("urgency = %v, want Warning", n.urgency)
	}

	listener.Dispatch(command.Exit)
	waitDone(t, done)
}

func TestAIFailureNotifiesExactlyOnce(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	ai := &fakeAI{err: apperrors.New(apperrors.Timeout, "request timed out")}
	a, listener, done := start(t, src, &fakeEngine{text: "x"}, ai, sink)

	a.History().Append(history.Entry{Start: time.Now(), Text: "some context"})
	listener.Dispatch(command.RequestSuggestions)

	sink.wait(t, "Suggestions Unavailable")
	time.Sleep(100 * time.Millisecond) // a duplicate would land in this window
	if c := sink.count("Suggestions Unavailable"); c != 1 {
		t.Errorf("failure notifications = %d, want exactly 1", c)
	}

	listener.Dispatch(command.Exit)
	waitDone(t, done)
}

func TestClearHistoryNotifies(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	a, listener, done := start(t, src, &fakeEngine{text: "x"}, &fakeAI{}, sink)

	a.History().Append(history.Entry{Start: time.Now(), Text: "old line"})
	a.History().Append(history.Entry{Start: time.Now().Add(time.Second), Text: "older line"})

	listener.Dispatch(command.ClearHistory)
	n := sink.wait(t, "History Cleared")
	if n.body != "Removed 2 transcript entries." {
		t.Errorf("clear body = %q", n.body)
	}
	if a.History().Len() != 0 {
		t.Error("history not empty after clear")
	}

	listener.Dispatch(command.Exit)
	waitDone(t, done)
}

func TestCaptureLossStillAcceptsCommands(t *testing.T) {
	src := newFakeSource()
	sink := newRecordingSink()
	a, listener, done := start(t, src, &fakeEngine{text: "x"}, &fakeAI{sum: "short call"}, sink)

	src.fail(apperrors.New(apperrors.DeviceLost, "monitor device vanished"))

	n := sink.wait(t, "Audio Capture Lost")
	if n.urgency != notify.Critical {
		t.Errorf("urgency = %v, want Critical", n.urgency)
	}

	// The conversation surface stays alive after capture death.
	a.History().Append(history.Entry{Start: time.Now(), Text: "what we got"})
	listener.Dispatch(command.RequestSummary)
	if got := sink.wait(t, "Meeting Summary"); got.body != "short call" {
		t.Errorf("summary body = %q", got.body)
	}

	listener.Dispatch(command.Exit)
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() = %v", err)
	}
}
