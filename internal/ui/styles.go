package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
// - Default (white/black): Primary text
// - Accent (soft purple #A78BFA): entity keys, field names
// - Muted (gray): Secondary info, counts, hints
// - No colored success/error/warning - use unicode symbols only

var (
	// Accent style for entity keys and highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted style for secondary info and hints
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// AccentBold combines accent color with bold
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")).Bold(true)
)

// DisableColor renders every style as plain text. Used for --no-color and
// when stdout is not a terminal.
func DisableColor() {
	Accent = lipgloss.NewStyle()
	Muted = lipgloss.NewStyle()
	Bold = lipgloss.NewStyle()
	AccentBold = lipgloss.NewStyle()
}
