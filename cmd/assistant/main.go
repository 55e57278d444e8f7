// Live-call assistant: captures system audio, transcribes utterances, and
// answers global hotkeys with AI suggestions delivered as notifications.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gordonklaus/portaudio"
	"github.com/joho/godotenv"

	"github.com/meetpilot/meetpilot/internal/archive"
	"github.com/meetpilot/meetpilot/internal/capture"
	"github.com/meetpilot/meetpilot/internal/command"
	"github.com/meetpilot/meetpilot/internal/config"
	"github.com/meetpilot/meetpilot/internal/history"
	"github.com/meetpilot/meetpilot/internal/logfile"
	"github.com/meetpilot/meetpilot/internal/notify"
	"github.com/meetpilot/meetpilot/internal/orchestrator"
	"github.com/meetpilot/meetpilot/internal/server"
	"github.com/meetpilot/meetpilot/internal/stt"
	"github.com/meetpilot/meetpilot/internal/suggest"
)

func main() {
	listDevices := flag.Bool("list-devices", false, "list input-capable audio devices and exit")
	device := flag.String("device", "", "audio device name substring (overrides AUDIO_DEVICE)")
	language := flag.String("language", "", "transcription language code (overrides LANGUAGE)")
	sampleRate := flag.Int("sample-rate", 0, "capture sample rate in Hz (overrides SAMPLE_RATE)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// .env is a convenience for local runs; a missing file is not an error.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug || os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.AudioDevice = *device
	}
	if *language != "" {
		cfg.Language = *language
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: environment(),
		})
		if err != nil {
			slog.Warn("sentry init failed", "error", err)
		} else {
			slog.Info("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("assistant failed", "error", err)
		os.Exit(1)
	}
	slog.Info("goodbye")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := notify.New(cfg.Notifier)
	if err != nil {
		return err
	}

	engine, closeEngine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	if closeEngine != nil {
		defer closeEngine()
	}

	convLog, err := logfile.New(cfg.LogFile)
	if err != nil {
		return err
	}
	defer convLog.Close()

	var store *archive.Store
	if cfg.ArchivePath != "" {
		store, err = archive.Open(cfg.ArchivePath, cfg.Language)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Error("archive close failed", "error", err)
			}
		}()
		slog.Info("archiving session", "path", cfg.ArchivePath, "session", store.SessionID())
	}

	// onEntry runs on the committer goroutine: entries hit the conversation
	// log and the archive in the same order they hit history.
	onEntry := func(e history.Entry) {
		convLog.Append(e.Start, e.Text)
		if store != nil {
			if err := store.Append(e); err != nil {
				slog.Error("archive append failed", "error", err)
			}
		}
	}

	ai := suggest.NewClient(cfg.DeepSeekBaseURL, cfg.DeepSeekModel, cfg.DeepSeekAPIKey, cfg.RequestTimeout())
	source := capture.NewSource(cfg.SampleRate, cfg.FrameSize, cfg.AudioDevice)
	listener := command.NewListener(8, 300*time.Millisecond)

	assistant := orchestrator.New(cfg, source, engine, ai, sink, listener, onEntry)

	if cfg.FeedEnabled {
		feed := server.New(assistant.History())
		httpServer := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      feed.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("live feed listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				slog.Error("feed server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("feed shutdown error", "error", err)
			}
		}()
	}

	go command.BindHotkeys(ctx, listener)

	return assistant.Run(ctx)
}

func buildEngine(ctx context.Context, cfg *config.Config) (stt.Engine, func(), error) {
	switch cfg.STTBackend {
	case "google":
		eng, err := stt.NewGoogleEngine(ctx, cfg.GoogleCredsFile, cfg.SampleRate)
		if err != nil {
			return nil, nil, fmt.Errorf("google speech engine: %w", err)
		}
		return eng, func() {
			if err := eng.Close(); err != nil {
				slog.Error("speech client close failed", "error", err)
			}
		}, nil
	default:
		return stt.NewWhisperEngine(cfg.WhisperURL, cfg.SampleRate, cfg.RequestTimeout()), nil, nil
	}
}

func printDevices() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no input-capable audio devices found")
		return nil
	}

	for _, d := range devices {
		marker := " "
		if d.Monitor {
			marker = "*"
		}
		fmt.Printf("%s [%2d] %-50s %d ch, %.0f Hz\n", marker, d.Index, d.Name, d.Channels, d.SampleRate)
	}
	fmt.Println("\n* = output monitor / loopback (preferred for call capture)")
	return nil
}

func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
