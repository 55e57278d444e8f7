// Package stt defines the speech-to-text engine boundary and its backends.
package stt

import (
	"context"
	"encoding/binary"
	"math"
)

// Result is a completed transcription.
type Result struct {
	Text     string
	Language string // detected, falls back to the hint
}

// Engine transcribes a single utterance. Implementations block for the
// duration of the engine call; callers run them off the capture path.
// Failures are coded EngineUnavailable or EmptyResult.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, language string) (Result, error)
}

// pcm16Bytes converts float32 samples in [-1, 1] to 16-bit little-endian PCM.
func pcm16Bytes(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(clampInt16(s)))
	}
	return buf
}

func clampInt16(s float32) int16 {
	v := float64(s) * math.MaxInt16
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
