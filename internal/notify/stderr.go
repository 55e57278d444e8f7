package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Stderr prints notifications as framed text blocks. Used headless and in
// tests, and as the fallback when no display is available.
type Stderr struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStderr creates a sink writing framed blocks to w.
func NewStderr(w io.Writer) *Stderr { return &Stderr{w: w} }

func (s *Stderr) Display(title, body string, urgency Urgency) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(s.w, "\n%s\n[%s] %s\n%s\n%s\n%s\n",
		rule, strings.ToUpper(urgency.String()), title, rule, formatText(body), rule)
}
