package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

const (
	// tagWidth fits the widest tag, "[WARNING]"
	tagWidth = 9
	spacer   = "  "
)

// Messenger writes leveled status lines, one per call
type Messenger struct {
	w         io.Writer
	highlight *color.Color
	info      *color.Color
	warn      *color.Color
	err       *color.Color
}

// NewMessenger returns a Messenger writing to w. Colors follow fatih/color's
// terminal detection unless changed with SetColor.
func NewMessenger(w io.Writer) *Messenger {
	return &Messenger{
		w:         w,
		highlight: color.New(color.FgCyan, color.Bold),
		info:      color.New(color.FgWhite),
		warn:      color.New(color.FgYellow),
		err:       color.New(color.FgRed, color.Bold),
	}
}

// SetColor forces colored output on or off
func (m *Messenger) SetColor(enabled bool) {
	for _, c := range []*color.Color{m.highlight, m.info, m.warn, m.err} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Writer returns the underlying writer, for callers that render their own blocks
func (m *Messenger) Writer() io.Writer {
	return m.w
}

// Highlight prints an emphasized informational line
func (m *Messenger) Highlight(msg string) {
	m.line(m.highlight, "INFO", msg)
}

// Info prints an informational line
func (m *Messenger) Info(msg string) {
	m.line(m.info, "INFO", msg)
}

// Warn prints a warning line
func (m *Messenger) Warn(msg string) {
	m.line(m.warn, "WARNING", msg)
}

// Error prints an error line
func (m *Messenger) Error(msg string) {
	m.line(m.err, "ERROR", msg)
}

// Infof is Info with formatting
func (m *Messenger) Infof(format string, a ...interface{}) {
	m.Info(fmt.Sprintf(format, a...))
}

// Highlightf is Highlight with formatting
func (m *Messenger) Highlightf(format string, a ...interface{}) {
	m.Highlight(fmt.Sprintf(format, a...))
}

// Warnf is Warn with formatting
func (m *Messenger) Warnf(format string, a ...interface{}) {
	m.Warn(fmt.Sprintf(format, a...))
}

// Step prints a blank line followed by a step header such as "[2/4] PROVISIONING PROFILE"
func (m *Messenger) Step(n, total int, title string) {
	fmt.Fprintln(m.w)
	m.highlight.Fprintln(m.w, fmt.Sprintf("[%d/%d] %s", n, total, title))
}

func (m *Messenger) line(c *color.Color, tag, msg string) {
	c.Fprintln(m.w, fmt.Sprintf("%-*s%s%s", tagWidth, "["+tag+"]", spacer, msg))
}
