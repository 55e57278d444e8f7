// Package orchestrator wires capture, segmentation, transcription and the
// operator command surface into one running assistant.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meetpilot/meetpilot/internal/capture"
	"github.com/meetpilot/meetpilot/internal/command"
	"github.com/meetpilot/meetpilot/internal/config"
	apperrors "github.com/meetpilot/meetpilot/internal/errors"
	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/notify"
	"github.com/meetpilot/meetpilot/internal/segment"
	"github.com/meetpilot/meetpilot/internal/stt"
	"github.com/meetpilot/meetpilot/internal/transcribe"
)

// Source is the audio frame producer. Satisfied by capture.Source; tests
// substitute a scripted one.
type Source interface {
	Start(ctx context.Context) error
	Frames() <-chan capture.Frame
	Err() error
	Stop()
}

// AI produces suggestions and summaries from conversation snapshots.
type AI interface {
	Suggestions(ctx context.Context, entries []history.Entry) ([]string, error)
	Summary(ctx context.Context, entries []history.Entry) (string, error)
}

// Assistant owns the pipeline. One instance per process; Run blocks until
// the exit hotkey or context cancellation.
type Assistant struct {
	cfg      *config.Config
	source   Source
	seg      *segment.Segmenter
	hist     *history.Log
	worker   *transcribe.Worker
	ai       AI
	sink     notify.Sink
	listener *command.Listener

	cancel      context.CancelFunc
	captureDone chan struct{}
}

// New assembles an assistant from its stages. onEntry runs on the
// transcription committer after each in-order append; pass nil when no
// sinks beyond history are wired.
func New(cfg *config.Config, source Source, engine stt.Engine, ai AI,
	sink notify.Sink, listener *command.Listener, onEntry func(history.Entry)) *Assistant {

	hist := history.New(cfg.MaxEntries)
	return &Assistant{
		cfg:    cfg,
		source: source,
		seg: segment.New(segment.Config{
			SampleRate:     cfg.SampleRate,
			FrameSize:      cfg.FrameSize,
			VoiceThreshold: cfg.VoiceThreshold,
			OnsetFrames:    cfg.OnsetFrames,
			SilenceGap:     cfg.SilenceGap(),
			SpeechPad:      cfg.FrameDuration() * 4,
			MinUtterance:   cfg.MinUtterance(),
			MaxUtterance:   cfg.MaxUtterance(),
			Language:       cfg.Language,
		}),
		hist:        hist,
		worker:      transcribe.New(engine, hist, cfg.QueueCapacity, cfg.STTWorkers, onEntry),
		ai:          ai,
		sink:        sink,
		listener:    listener,
		captureDone: make(chan struct{}),
	}
}

// History exposes the conversation log for read-only surfaces (live feed).
func (a *Assistant) History() *history.Log { return a.hist }

// Run starts the pipeline and serves operator commands until exit. A failed
// capture start is the only fatal startup error; everything after that is
// contained and reported through notifications.
func (a *Assistant) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.worker.Start(ctx)

	if err := a.source.Start(ctx); err != nil {
		a.worker.Close()
		return fmt.Errorf("start audio capture: %w", err)
	}
	go a.captureLoop()

	slog.Info("assistant running",
		"language", a.cfg.Language, "stt", a.cfg.STTBackend, "notifier", a.cfg.Notifier)
	a.sink.Display("Assistant Active",
		"Listening to system audio.\nCtrl+Alt+S suggestions, Ctrl+Alt+R summary, Ctrl+Alt+C clear, Ctrl+Alt+Q quit.",
		notify.Info)

	captureDone := a.captureDone
	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return ctx.Err()

		case <-captureDone:
			// Capture is gone but the conversation so far is still useful:
			// keep serving suggestions and wait for the exit hotkey.
			captureDone = nil
			if err := a.source.Err(); err != nil {
				slog.Error("audio capture terminated", "error", err)
				a.sink.Display("Audio Capture Lost",
					"The audio device stopped delivering frames. Transcription has stopped; press Ctrl+Alt+Q to quit.",
					notify.Critical)
			}

		case cmd := <-a.listener.Commands():
			slog.Debug("operator command", "command", cmd)
			switch cmd {
			case command.RequestSuggestions:
				go a.suggestions(ctx)
			case command.RequestSummary:
				go a.summary(ctx)
			case command.ClearHistory:
				n := a.hist.Clear()
				slog.Info("history cleared", "removed", n)
				a.sink.Display("History Cleared",
					fmt.Sprintf("Removed %d transcript entries.", n), notify.Info)
			case command.Exit:
				a.shutdown()
				return nil
			}
		}
	}
}

// captureLoop drives frames through the segmenter. Runs until the frame
// channel closes, either at shutdown or on device loss.
func (a *Assistant) captureLoop() {
	defer close(a.captureDone)
	for f := range a.source.Frames() {
		for _, u := range a.seg.Feed(f) {
			a.worker.Enqueue(u)
		}
	}
}

// shutdown drains the pipeline in stage order so no committed utterance is
// lost: capture stops first, the segmenter flushes its in-flight utterance,
// then the worker finishes everything queued.
func (a *Assistant) shutdown() {
	slog.Info("assistant shutting down")
	a.source.Stop()
	<-a.captureDone

	if u := a.seg.Flush(); u != nil {
		a.worker.Enqueue(*u)
	}
	a.worker.Close()
	a.cancel()

	if n := a.worker.Dropped(); n > 0 {
		slog.Warn("utterances dropped under backpressure during this session", "count", n)
	}
	a.sink.Display("Assistant Stopped", "Audio capture and transcription have shut down.", notify.Info)
}

func (a *Assistant) suggestions(ctx context.Context) {
	entries := a.hist.Snapshot(a.cfg.ContextWindow)
	if len(entries) == 0 {
		a.sink.Display("No Conversation",
			"Nothing to analyze yet.\nSpeak during the call and try again.", notify.Warning)
		return
	}

	a.sink.Display("Analyzing", "Generating suggestions from the recent conversation...", notify.Info)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	sugs, err := a.ai.Suggestions(ctx, entries)
	if err != nil {
		a.reportAIFailure("Suggestions Unavailable", err)
		return
	}

	var b strings.Builder
	for i, s := range sugs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	a.sink.Display("AI Suggestions", strings.TrimRight(b.String(), "\n"), notify.Info)
}

func (a *Assistant) summary(ctx context.Context) {
	entries := a.hist.Snapshot(0)
	if len(entries) == 0 {
		a.sink.Display("No Conversation",
			"Nothing to summarize yet.\nSpeak during the call first.", notify.Warning)
		return
	}

	a.sink.Display("Summarizing", "Building the meeting summary...", notify.Info)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	text, err := a.ai.Summary(ctx, entries)
	if err != nil {
		a.reportAIFailure("Summary Unavailable", err)
		return
	}
	a.sink.Display("Meeting Summary", text, notify.Info)
}

// reportAIFailure turns a coded failure into exactly one operator
// notification per request.
func (a *Assistant) reportAIFailure(title string, err error) {
	if errors.Is(err, context.Canceled) {
		return // shutdown raced the request; nothing to tell the operator
	}
	slog.Error("ai request failed", "code", apperrors.CodeOf(err), "error", err)

	code := apperrors.CodeOf(err)
	if errors.Is(err, context.DeadlineExceeded) {
		code = apperrors.Timeout
	}

	var body string
	urgency := notify.Warning
	switch code {
	case apperrors.Timeout:
		body = "The request took too long.\nTry again in a moment."
	case apperrors.AuthFailed:
		body = "The API key was rejected.\nCheck DEEPSEEK_API_KEY and restart."
		urgency = notify.Critical
	case apperrors.RateLimited:
		body = "The AI endpoint is rate limiting requests.\nWait a little before retrying."
	case apperrors.Unavailable:
		body = "The AI endpoint is unreachable.\nCheck the network and try again."
	case apperrors.Canceled:
		return
	default:
		body = "The AI endpoint returned an unusable response.\nTry again."
	}
	a.sink.Display(title, body, urgency)
}
