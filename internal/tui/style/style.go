// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// UI styles using lipgloss. lipgloss styles are value types and safe for
// concurrent use, so these are plain package-level vars (style.Title reads
// better than style.TitleStyle).
var (
	// Title is used for the app header and the spinner title.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for the workflow status next to the header.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Success is used for completed actions such as a saved transcript.
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	// Error is used for validation and service failures.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Warning is used for files the picker refuses.
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Viewport is used for the transcript viewport border.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	// Help is used for keyboard shortcut hints.
	Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	// Key is used for highlighting keyboard keys.
	Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Progress is used for the spinner while uploading.
	Progress = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	// Label is used for inline labels (e.g., "File:", "Saved:").
	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("255"))

	// Muted is used for de-emphasized text (e.g., file paths, byte counts).
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))
)
