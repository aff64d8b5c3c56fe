// Package ui renders session progress and status messages for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"mailvalid/internal/progress"
)

// DefaultHideAfter is how long a success message stays visible. Error and
// info messages persist until replaced.
const DefaultHideAfter = 5 * time.Second

const barWidth = 30

// Messenger keeps the one current status message. Success messages clear
// themselves after hideAfter; errors and infos stay.
type Messenger struct {
	mu        sync.Mutex
	out       io.Writer
	hideAfter time.Duration
	current   string
	visible   bool
	gen       int
}

func NewMessenger(out io.Writer, hideAfter time.Duration) *Messenger {
	if hideAfter <= 0 {
		hideAfter = DefaultHideAfter
	}
	return &Messenger{out: out, hideAfter: hideAfter}
}

// Info shows a persistent informational message.
func (m *Messenger) Info(msg string) { m.show("info", msg, false) }

// Error shows a persistent error message.
func (m *Messenger) Error(msg string) { m.show("error", msg, false) }

// Success shows a message that hides itself after the configured delay.
func (m *Messenger) Success(msg string) { m.show("ok", msg, true) }

// Current returns the visible message, if any.
func (m *Messenger) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.visible
}

func (m *Messenger) show(kind, msg string, autoHide bool) {
	m.mu.Lock()
	m.current = msg
	m.visible = true
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if m.out != nil {
		fmt.Fprintf(m.out, "[%s] %s\n", kind, msg)
	}
	if autoHide {
		time.AfterFunc(m.hideAfter, func() {
			m.mu.Lock()
			// a newer message may have replaced this one
			if m.gen == gen {
				m.current = ""
				m.visible = false
			}
			m.mu.Unlock()
		})
	}
}

// RenderLine formats one progress display as a single terminal line.
func RenderLine(d progress.Display) string {
	filled := int(d.Percent / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	line := fmt.Sprintf("[%s] %s  %s  ETA %s", bar, d.PercentLabel, d.Counts, d.ETA)
	if d.CurrentFile != "" {
		line += "  " + d.CurrentFile
	}
	return line
}
