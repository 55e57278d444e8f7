// Package notify delivers operator-facing messages as desktop notifications.
package notify

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Urgency selects notification styling. Critical failures (lost audio
// device, unreachable AI endpoint) interrupt; the rest inform.
type Urgency int

const (
	Info Urgency = iota
	Warning
	Critical
)

func (u Urgency) String() string {
	switch u {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "info"
	}
}

// Sink displays a notification. Implementations must not block the caller:
// slow display paths run on their own goroutine and failures are logged,
// never returned, because there is no one to return them to.
type Sink interface {
	Display(title, body string, urgency Urgency)
}

// New selects a sink by name.
func New(kind string) (Sink, error) {
	switch kind {
	case "desktop":
		return NewDesktop(), nil
	case "zenity":
		return NewZenity(), nil
	case "stderr":
		return NewStderr(os.Stderr), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}
}

var (
	reHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic   = regexp.MustCompile(`\*(.+?)\*`)
	reCode     = regexp.MustCompile("`(.+?)`")
	reBullet   = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	reNumbered = regexp.MustCompile(`(?m)^\s*(\d+)\.\s+`)
	reBlank    = regexp.MustCompile(`\n\n+`)
)

// formatText flattens the light markdown the AI endpoint tends to emit into
// plain text a notification widget can show. Bold becomes upper case since
// widgets have no rich text.
func formatText(text string) string {
	text = reHeading.ReplaceAllString(text, "")
	text = reBold.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToUpper(reBold.FindStringSubmatch(m)[1])
	})
	text = reItalic.ReplaceAllString(text, "$1")
	text = reCode.ReplaceAllString(text, "$1")
	text = reBullet.ReplaceAllString(text, "• ")
	text = reNumbered.ReplaceAllString(text, "$1. ")
	text = reBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
