// Package config handles assistant configuration from environment and flags.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the immutable runtime configuration. All voice-activity tuning
// knobs are exposed here rather than hard-coded; defaults follow what works
// for 16 kHz mono system-audio monitors.
type Config struct {
	// Audio capture
	SampleRate  int    `env:"SAMPLE_RATE" envDefault:"16000"`
	FrameSize   int    `env:"FRAME_SIZE" envDefault:"800"` // samples per frame, 50ms at 16kHz
	AudioDevice string `env:"AUDIO_DEVICE"`                // substring match; empty = auto-detect monitor

	// Segmentation
	VoiceThreshold float64 `env:"VOICE_THRESHOLD" envDefault:"0.02"` // RMS
	OnsetFrames    int     `env:"ONSET_FRAMES" envDefault:"2"`
	SilenceGapMs   int     `env:"SILENCE_GAP_MS" envDefault:"600"`
	MinUtteranceMs int     `env:"MIN_UTTERANCE_MS" envDefault:"250"`
	MaxUtteranceMs int     `env:"MAX_UTTERANCE_MS" envDefault:"30000"`

	// Transcription
	Language      string `env:"LANGUAGE" envDefault:"en"`
	STTBackend    string `env:"STT_BACKEND" envDefault:"whisper"` // whisper | google
	WhisperURL    string `env:"WHISPER_URL" envDefault:"http://127.0.0.1:8080/inference"`
	GoogleCredsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	QueueCapacity int    `env:"QUEUE_CAPACITY" envDefault:"8"`
	STTWorkers    int    `env:"STT_WORKERS" envDefault:"2"`

	// Conversation history
	MaxEntries    int `env:"MAX_ENTRIES" envDefault:"200"`
	ContextWindow int `env:"CONTEXT_WINDOW" envDefault:"20"` // entries sent for suggestions

	// Suggestion service
	DeepSeekAPIKey   string `env:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL  string `env:"DEEPSEEK_BASE_URL" envDefault:"https://api.deepseek.com/v1/chat/completions"`
	DeepSeekModel    string `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	RequestTimeoutMs int    `env:"REQUEST_TIMEOUT_MS" envDefault:"30000"`

	// Sinks and surfaces
	Notifier    string `env:"NOTIFIER" envDefault:"desktop"` // desktop | zenity | stderr
	LogFile     string `env:"LOG_FILE" envDefault:"conversation.log"`
	ArchivePath string `env:"ARCHIVE_PATH"` // empty = archive disabled
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8700"`
	FeedEnabled bool   `env:"FEED_ENABLED" envDefault:"true"`

	// Diagnostics
	SentryDSN string `env:"SENTRY_DSN"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants between the tuning parameters.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 || c.FrameSize > c.SampleRate {
		return fmt.Errorf("FRAME_SIZE must be in (0, %d], got %d", c.SampleRate, c.FrameSize)
	}
	if c.VoiceThreshold <= 0 || c.VoiceThreshold >= 1 {
		return fmt.Errorf("VOICE_THRESHOLD must be in (0, 1), got %g", c.VoiceThreshold)
	}
	if c.OnsetFrames < 1 {
		return fmt.Errorf("ONSET_FRAMES must be at least 1, got %d", c.OnsetFrames)
	}
	if c.MinUtteranceMs <= 0 || c.MaxUtteranceMs <= c.MinUtteranceMs {
		return fmt.Errorf("utterance bounds invalid: min=%dms max=%dms", c.MinUtteranceMs, c.MaxUtteranceMs)
	}
	if c.SilenceGapMs <= 0 {
		return fmt.Errorf("SILENCE_GAP_MS must be positive, got %d", c.SilenceGapMs)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1, got %d", c.QueueCapacity)
	}
	if c.STTWorkers < 1 {
		return fmt.Errorf("STT_WORKERS must be at least 1, got %d", c.STTWorkers)
	}
	if c.RequestTimeoutMs <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive, got %d", c.RequestTimeoutMs)
	}
	switch c.STTBackend {
	case "whisper", "google":
	default:
		return fmt.Errorf("STT_BACKEND must be whisper or google, got %q", c.STTBackend)
	}
	switch c.Notifier {
	case "desktop", "zenity", "stderr":
	default:
		return fmt.Errorf("NOTIFIER must be desktop, zenity or stderr, got %q", c.Notifier)
	}
	if c.DeepSeekAPIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY is required (export it or add it to .env)")
	}
	return nil
}

// FrameDuration returns the wall-clock length of one capture frame.
func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.FrameSize) * time.Second / time.Duration(c.SampleRate)
}

// RequestTimeout returns the suggestion-service timeout as a Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// SilenceGap returns the offset-debounce window as a Duration.
func (c *Config) SilenceGap() time.Duration {
	return time.Duration(c.SilenceGapMs) * time.Millisecond
}

// MinUtterance returns the minimum utterance duration.
func (c *Config) MinUtterance() time.Duration {
	return time.Duration(c.MinUtteranceMs) * time.Millisecond
}

// MaxUtterance returns the forced-emission cap.
func (c *Config) MaxUtterance() time.Duration {
	return time.Duration(c.MaxUtteranceMs) * time.Millisecond
}
