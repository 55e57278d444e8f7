// Package capture reads raw audio frames from a system output-monitor device.
package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/meetpilot/meetpilot/internal/errors"
)

// Frame is a fixed-size block of mono PCM samples. Frames are owned by the
// capture→segmenter hand-off and discarded once consumed.
type Frame struct {
	Seq     uint64
	Samples []float32
	Time    time.Time
}

// Source captures frames from a single input device until Stop is called or
// the device disconnects. A device disconnect is capture-fatal: the frame
// channel is closed and Err reports a DeviceLost error.
type Source struct {
	sampleRate int
	frameSize  int
	deviceHint string

	outCh chan Frame

	mu       sync.Mutex
	stream   *portaudio.Stream
	running  bool
	err      error
	stopOnce sync.Once
	done     chan struct{}
}

// NewSource creates a capture source. deviceHint is a case-insensitive
// substring matched against device names; empty means auto-detect a
// monitor/loopback device, falling back to the default input.
func NewSource(sampleRate, frameSize int, deviceHint string) *Source {
	return &Source{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		deviceHint: deviceHint,
		outCh:      make(chan Frame, 64),
		done:       make(chan struct{}),
	}
}

// Frames returns the channel of captured frames. It is closed when capture
// terminates for any reason.
func (s *Source) Frames() <-chan Frame { return s.outCh }

// Err returns the terminal capture error, if any. Valid after the frame
// channel closes.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start opens the device and begins the read loop.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return apperrors.Wrap(err, apperrors.DeviceLost, "portaudio init failed")
	}

	dev, err := findDevice(s.deviceHint)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.sampleRate),
		FramesPerBuffer: s.frameSize,
	}

	buf := make([]float32, s.frameSize)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return apperrors.Wrapf(err, apperrors.DeviceLost, "open stream on %q", dev.Name)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return apperrors.Wrapf(err, apperrors.DeviceLost, "start stream on %q", dev.Name)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	slog.Info("audio capture started", "device", dev.Name, "sample_rate", s.sampleRate, "frame_size", s.frameSize)

	go s.readLoop(ctx, stream, buf)
	return nil
}

func (s *Source) readLoop(ctx context.Context, stream *portaudio.Stream, buf []float32) {
	defer close(s.outCh)
	defer close(s.done)

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.doneStopping():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			s.mu.Lock()
			stopping := !s.running
			if !stopping {
				s.err = apperrors.Wrap(err, apperrors.DeviceLost, "audio stream read failed")
			}
			s.mu.Unlock()
			if !stopping {
				slog.Error("audio device lost", "error", err)
			}
			return
		}

		frame := Frame{
			Seq:     seq,
			Samples: append([]float32(nil), buf...),
			Time:    time.Now(),
		}
		seq++

		// Blocking send: frames are never dropped silently. The segmenter is
		// a tight arithmetic loop, so under normal load this never stalls.
		select {
		case s.outCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Source) doneStopping() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return nil
}

// Stop ends capture and releases the device. Safe to call more than once.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.running = false
		stream := s.stream
		s.mu.Unlock()

		if stream != nil {
			_ = stream.Abort()
			<-s.done
			_ = stream.Close()
		}
		_ = portaudio.Terminate()
		slog.Info("audio capture stopped")
	})
}
