// Package transcribe runs utterances through the speech-to-text engine and
// commits transcript entries to history in utterance order.
package transcribe

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/segment"
	"github.com/meetpilot/meetpilot/internal/stt"
)

// completion releases an utterance's ordering slot. Every enqueued utterance
// produces exactly one completion — success, transcription failure, or
// backpressure drop — so the committer never stalls on a sequence gap.
type completion struct {
	seq   uint64
	entry history.Entry
	ok    bool
}

// Worker owns the bounded hand-off queue between segmentation and the
// engine. Transcription of utterance k never blocks detection of k+1: the
// queue decouples the stages, and when it saturates the oldest unstarted
// utterance is dropped in favor of recency.
type Worker struct {
	engine  stt.Engine
	hist    *history.Log
	workers int

	// onEntry runs on the committer goroutine after each in-order append
	// (log sink, archive, live feed side effects).
	onEntry func(history.Entry)

	queue       chan segment.Utterance
	completions chan completion

	enqueueMu sync.Mutex
	dropped   atomic.Int64

	workerWG    sync.WaitGroup
	committerWG sync.WaitGroup
	closeOnce   sync.Once
}

// New creates a worker pool. queueCap bounds pending utterances; workers
// bounds concurrent engine calls.
func New(engine stt.Engine, hist *history.Log, queueCap, workers int, onEntry func(history.Entry)) *Worker {
	return &Worker{
		engine:      engine,
		hist:        hist,
		workers:     workers,
		onEntry:     onEntry,
		queue:       make(chan segment.Utterance, queueCap),
		completions: make(chan completion, 2*queueCap+workers+4),
	}
}

// Start launches the committer and the transcriber pool.
func (w *Worker) Start(ctx context.Context) {
	w.committerWG.Add(1)
	go w.commitLoop()

	for i := 0; i < w.workers; i++ {
		w.workerWG.Add(1)
		go w.transcribeLoop(ctx)
	}
}

// Enqueue hands an utterance to the pool. If the queue is full the oldest
// unstarted utterance is dropped with a warning; the new one always lands.
func (w *Worker) Enqueue(u segment.Utterance) {
	w.enqueueMu.Lock()
	defer w.enqueueMu.Unlock()

	for {
		select {
		case w.queue <- u:
			return
		default:
		}
		select {
		case old := <-w.queue:
			w.dropped.Add(1)
			slog.Warn("utterance queue saturated, dropping oldest",
				"dropped_seq", old.Seq, "dropped_duration", old.Duration())
			w.completions <- completion{seq: old.Seq}
		default:
			// A transcriber grabbed an item between the two selects; retry.
		}
	}
}

// Dropped reports how many utterances were discarded under backpressure.
func (w *Worker) Dropped() int64 { return w.dropped.Load() }

func (w *Worker) transcribeLoop(ctx context.Context) {
	defer w.workerWG.Done()

	for u := range w.queue {
		res, err := w.engine.Transcribe(ctx, u.Samples, u.Language)
		if err != nil {
			// Recoverable: drop the utterance, surface a diagnostic, move on.
			// Retrying would reintroduce audio that has scrolled out of
			// relevance.
			slog.Error("transcription failed, dropping utterance",
				"seq", u.Seq, "duration", u.Duration(), "error", err)
			w.completions <- completion{seq: u.Seq}
			continue
		}
		w.completions <- completion{
			seq: u.Seq,
			entry: history.Entry{
				Start:    u.Start,
				Duration: u.Duration(),
				Language: res.Language,
				Text:     res.Text,
			},
			ok: true,
		}
	}
}

// commitLoop appends entries in utterance-sequence order regardless of
// engine completion order, via a seq-keyed reordering buffer.
func (w *Worker) commitLoop() {
	defer w.committerWG.Done()

	pending := make(map[uint64]completion)
	var next uint64

	for c := range w.completions {
		pending[c.seq] = c
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			w.commit(ready)
		}
	}

	// Drain stragglers at shutdown in sequence order; gaps no longer matter
	// because nothing else will arrive.
	rest := make([]uint64, 0, len(pending))
	for seq := range pending {
		rest = append(rest, seq)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, seq := range rest {
		w.commit(pending[seq])
	}
}

func (w *Worker) commit(c completion) {
	if !c.ok {
		return
	}
	w.hist.Append(c.entry)
	if w.onEntry != nil {
		w.onEntry(c.entry)
	}
}

// Close drains in-flight work and stops the pool: no new utterances may be
// enqueued, queued utterances are still transcribed, and the committer
// flushes before Close returns.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
		w.workerWG.Wait()
		close(w.completions)
		w.committerWG.Wait()
	})
}
