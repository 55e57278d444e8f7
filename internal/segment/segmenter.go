// Package segment converts a continuous frame stream into discrete
// utterances using energy-based voice-activity detection.
package segment

import (
	"log/slog"
	"math"
	"time"

	"github.com/meetpilot/meetpilot/internal/capture"
)

// Utterance is a contiguous span of detected speech bounded by silence.
// Owned by the segmenter until handed to the transcription worker.
type Utterance struct {
	Seq      uint64
	Start    time.Time
	End      time.Time
	Samples  []float32
	Language string
}

// Duration of the utterance; End is derived from the sample count, so this
// tracks audio length rather than wall clock.
func (u *Utterance) Duration() time.Duration {
	return u.End.Sub(u.Start)
}

// Config holds the segmentation tuning parameters. All of them are
// operational knobs surfaced through the top-level configuration.
type Config struct {
	SampleRate     int
	FrameSize      int
	VoiceThreshold float64       // RMS above which a frame counts as voiced
	OnsetFrames    int           // consecutive voiced frames to open an utterance
	SilenceGap     time.Duration // consecutive silence to close an utterance
	SpeechPad      time.Duration // trailing silence kept on emitted utterances
	MinUtterance   time.Duration // shorter utterances are discarded as noise
	MaxUtterance   time.Duration // forced emission boundary
	Language       string
}

type state int

const (
	stateIdle state = iota
	stateVoicing
)

// Segmenter is a push-driven state machine: Idle → Voicing → Idle,
// transitions driven purely by consecutive voiced/silent frame counts.
// Not safe for concurrent use; a single capture loop feeds it.
type Segmenter struct {
	cfg Config

	offsetFrames int
	padFrames    int
	minSamples   int
	maxSamples   int

	st        state
	voicedRun int
	silentRun int

	onsetBuf   []float32
	onsetStart time.Time

	buf   []float32
	start time.Time

	seq    uint64
	closed bool
}

// New creates a segmenter from validated config.
func New(cfg Config) *Segmenter {
	frameDur := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	offset := int((cfg.SilenceGap + frameDur - 1) / frameDur)
	if offset < 1 {
		offset = 1
	}
	pad := int(cfg.SpeechPad / frameDur)
	if pad > offset {
		pad = offset
	}
	return &Segmenter{
		cfg:          cfg,
		offsetFrames: offset,
		padFrames:    pad,
		minSamples:   int(cfg.MinUtterance.Seconds() * float64(cfg.SampleRate)),
		maxSamples:   int(cfg.MaxUtterance.Seconds() * float64(cfg.SampleRate)),
	}
}

// Feed processes one frame and returns any utterances it completed.
func (s *Segmenter) Feed(f capture.Frame) []Utterance {
	voiced := rms(f.Samples) > s.cfg.VoiceThreshold

	switch s.st {
	case stateIdle:
		if !voiced || s.closed {
			s.voicedRun = 0
			s.onsetBuf = nil
			return nil
		}
		if s.voicedRun == 0 {
			s.onsetStart = f.Time
			s.onsetBuf = s.onsetBuf[:0]
		}
		s.voicedRun++
		s.onsetBuf = append(s.onsetBuf, f.Samples...)
		if s.voicedRun >= s.cfg.OnsetFrames {
			s.st = stateVoicing
			s.buf = append([]float32(nil), s.onsetBuf...)
			s.start = s.onsetStart
			s.silentRun = 0
			s.onsetBuf = nil
			s.voicedRun = 0
		}
		return nil

	case stateVoicing:
		s.buf = append(s.buf, f.Samples...)
		if voiced {
			s.silentRun = 0
		} else {
			s.silentRun++
		}

		if s.silentRun >= s.offsetFrames {
			u := s.close()
			if u == nil {
				return nil
			}
			return []Utterance{*u}
		}

		// Forced emission boundary: transcription latency stays bounded
		// even during continuous speech.
		if len(s.buf) >= s.maxSamples {
			u := s.emit(s.buf[:s.maxSamples])
			rest := append([]float32(nil), s.buf[s.maxSamples:]...)
			s.buf = rest
			s.start = u.End
			return []Utterance{u}
		}
	}
	return nil
}

// close ends the current utterance at a silence gap. Trailing silence beyond
// the speech pad is trimmed so the minimum-duration check measures speech,
// not the gap that ended it.
func (s *Segmenter) close() *Utterance {
	trimFrames := s.silentRun - s.padFrames
	keep := len(s.buf) - trimFrames*s.cfg.FrameSize
	if keep < 0 {
		keep = 0
	}
	samples := s.buf[:keep]

	s.st = stateIdle
	s.silentRun = 0

	if keep < s.minSamples {
		slog.Debug("discarding sub-minimum utterance", "samples", keep, "min", s.minSamples)
		s.buf = nil
		return nil
	}

	u := s.emit(samples)
	s.buf = nil
	return &u
}

func (s *Segmenter) emit(samples []float32) Utterance {
	dur := time.Duration(len(samples)) * time.Second / time.Duration(s.cfg.SampleRate)
	u := Utterance{
		Seq:      s.seq,
		Start:    s.start,
		End:      s.start.Add(dur),
		Samples:  append([]float32(nil), samples...),
		Language: s.cfg.Language,
	}
	s.seq++
	return u
}

// Flush completes an in-flight utterance at shutdown. Returns nil if there
// is nothing worth emitting.
func (s *Segmenter) Flush() *Utterance {
	if s.st != stateVoicing {
		return nil
	}
	s.st = stateIdle
	s.silentRun = 0
	if len(s.buf) < s.minSamples {
		s.buf = nil
		return nil
	}
	u := s.emit(s.buf)
	s.buf = nil
	return &u
}

// Close stops new utterances from being started. Frames fed afterwards are
// still drained so an in-progress utterance can complete.
func (s *Segmenter) Close() {
	s.closed = true
}

// rms computes the root-mean-square energy of a frame.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
