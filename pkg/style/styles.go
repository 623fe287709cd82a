// Package style centralizes terminal rendering: line prefixes for
// progress output, the dry-run marker, and the run summary table.
// Components outside this package and pkg/interact never format for
// the terminal themselves.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	cellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// DisableColors switches every style to plain text, for --no-color and
// non-TTY output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Bold renders s in bold.
func Bold(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}

// Muted renders s dimmed.
func Muted(s string) string {
	return MutedStyle.Render(s)
}
