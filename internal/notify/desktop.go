package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Desktop shows notifications through the platform notification daemon.
type Desktop struct{}

// NewDesktop creates the default notification sink.
func NewDesktop() *Desktop { return &Desktop{} }

// Display sends the notification without blocking. Critical messages use the
// alert variant, which also plays the platform attention sound.
func (d *Desktop) Display(title, body string, urgency Urgency) {
	body = formatText(body)
	go func() {
		var err error
		if urgency == Critical {
			err = beeep.Alert(title, body, "")
		} else {
			err = beeep.Notify(title, body, "")
		}
		if err != nil {
			slog.Error("desktop notification failed", "title", title, "error", err)
		}
	}()
}
