package notify

import (
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

// Zenity shows notifications as zenity dialogs. Unlike the notification
// daemon, a dialog can hold a multi-line AI answer and stays up long enough
// to read it during a call.
type Zenity struct {
	// longBody switches from --info to a scrollable --text-info dialog.
	longBody int
	timeout  int // seconds before the dialog dismisses itself
}

// NewZenity creates a zenity-backed sink.
func NewZenity() *Zenity {
	return &Zenity{longBody: 400, timeout: 30}
}

// Display spawns the dialog on its own goroutine. Bodies go through a temp
// file for the scrollable variant so shell-sensitive characters survive.
func (z *Zenity) Display(title, body string, urgency Urgency) {
	body = formatText(body)
	go func() {
		var args []string
		var cleanup func()

		if len(body) > z.longBody {
			f, err := os.CreateTemp("", "notify-*.txt")
			if err != nil {
				slog.Error("zenity temp file failed", "error", err)
				return
			}
			if _, err := f.WriteString(body); err != nil {
				slog.Error("zenity temp file failed", "error", err)
				f.Close()
				os.Remove(f.Name())
				return
			}
			f.Close()
			cleanup = func() { os.Remove(f.Name()) }

			args = []string{
				"--text-info",
				"--title", title,
				"--filename", f.Name(),
				"--width", "700", "--height", "500",
				"--font", "Sans 12",
				"--ok-label", "Close",
			}
		} else {
			args = []string{
				dialogFlag(urgency),
				"--title", title,
				"--text", body,
				"--width", "500",
				"--no-wrap",
			}
		}
		if z.timeout > 0 {
			args = append(args, "--timeout", strconv.Itoa(z.timeout))
		}

		// Timeout-dismissed dialogs exit nonzero; only report exec failures.
		if err := exec.Command("zenity", args...).Run(); err != nil {
			if _, ok := err.(*exec.ExitError); !ok {
				slog.Error("zenity notification failed", "title", title, "error", err)
			}
		}
		if cleanup != nil {
			cleanup()
		}
	}()
}

func dialogFlag(urgency Urgency) string {
	switch urgency {
	case Warning:
		return "--warning"
	case Critical:
		return "--error"
	default:
		return "--info"
	}
}
