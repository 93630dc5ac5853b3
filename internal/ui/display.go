package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
)

const fallbackWidth = 120

// DisplayContext describes the terminal stdout is attached to.
type DisplayContext struct {
	TermWidth int
	IsTTY     bool
}

// NewDisplayContext inspects stdout. Width falls back to 120 columns when
// stdout is not a terminal.
func NewDisplayContext() *DisplayContext {
	fd := os.Stdout.Fd()
	d := &DisplayContext{TermWidth: fallbackWidth, IsTTY: term.IsTerminal(fd)}
	if d.IsTTY {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			d.TermWidth = w
		}
	}
	return d
}

// NewDisplayContextWithWidth returns a terminal context of a fixed width.
func NewDisplayContextWithWidth(width int) *DisplayContext {
	return &DisplayContext{TermWidth: width, IsTTY: true}
}

// AvailableWidth returns the columns left after reserving used.
func (d *DisplayContext) AvailableWidth(used int) int {
	return d.TermWidth - used
}
