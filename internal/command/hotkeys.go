package command

import (
	"context"
	"log/slog"

	hook "github.com/robotn/gohook"
)

// Hotkey chords. All carry Ctrl+Alt so they stay global without swallowing
// normal typing.
var bindings = map[Command][]string{
	RequestSuggestions: {"ctrl", "alt", "s"},
	RequestSummary:     {"ctrl", "alt", "r"},
	ClearHistory:       {"ctrl", "alt", "c"},
	Exit:               {"ctrl", "alt", "q"},
}

// BindHotkeys registers the global chords and runs the OS hook loop until
// the context is cancelled. Blocks; run it on its own goroutine.
func BindHotkeys(ctx context.Context, l *Listener) {
	for cmd, keys := range bindings {
		cmd := cmd
		hook.Register(hook.KeyDown, keys, func(hook.Event) {
			slog.Debug("hotkey triggered", "command", cmd)
			l.Dispatch(cmd)
		})
	}

	events := hook.Start()
	defer hook.End()

	slog.Info("global hotkeys active",
		"suggestions", "ctrl+alt+s", "summary", "ctrl+alt+r",
		"clear", "ctrl+alt+c", "exit", "ctrl+alt+q")

	done := make(chan struct{})
	go func() {
		<-hook.Process(events)
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}
