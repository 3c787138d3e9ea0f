// Package notify defines how the engine talks to whatever surface shows
// progress, notices and dialogs to the user.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JohanCodinha/ghfeedback/internal/logger"
)

// DialogKind selects the presentation of a dialog.
type DialogKind string

const (
	DialogInfo    DialogKind = "info"
	DialogWarning DialogKind = "warning"
	DialogError   DialogKind = "error"
)

// Action is an optional button attached to a notice or dialog.
type Action struct {
	Label string
	URL   string
}

// Sink receives activity indicators, notices and dialogs.
type Sink interface {
	StartActivity(id, message string)
	Dismiss(id string)
	ShowError(message, detail, id string)
	ShowInfo(message string, action *Action)
	ShowDialog(kind DialogKind, title, content string, actions []Action)
}

// NewID returns a fresh identifier for an activity or error notice.
func NewID() string {
	return uuid.NewString()
}

var log = logger.Named("notify")

// Console writes notices to w and mirrors them into the log.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) StartActivity(id, message string) {
	log.Debug("activity %s started: %s", id, message)
	c.printf("%s...\n", message)
}

func (c *Console) Dismiss(id string) {
	log.Debug("activity %s dismissed", id)
}

func (c *Console) ShowError(message, detail, id string) {
	log.Error("%s: %s", message, detail)
	if detail != "" {
		c.printf("error: %s: %s\n", message, detail)
		return
	}
	c.printf("error: %s\n", message)
}

func (c *Console) ShowInfo(message string, action *Action) {
	log.Info("%s", message)
	if action != nil && action.URL != "" {
		c.printf("%s (%s: %s)\n", message, action.Label, action.URL)
		return
	}
	c.printf("%s\n", message)
}

func (c *Console) ShowDialog(kind DialogKind, title, content string, actions []Action) {
	log.Info("dialog %s: %s", kind, title)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", kind, title)
	if content != "" {
		fmt.Fprintf(&b, "%s\n", content)
	}
	for _, a := range actions {
		if a.URL != "" {
			fmt.Fprintf(&b, "  - %s: %s\n", a.Label, a.URL)
		} else {
			fmt.Fprintf(&b, "  - %s\n", a.Label)
		}
	}
	c.printf("%s", b.String())
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}
