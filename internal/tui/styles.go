package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors (k9s-inspired)
	primaryColor   = lipgloss.Color("#7D56F4") // Purple
	successColor   = lipgloss.Color("#00FF00") // Green
	errorColor     = lipgloss.Color("#FF0000") // Red
	warnColor      = lipgloss.Color("#FFA500") // Orange
	dimColor       = lipgloss.Color("#666666") // Gray
	highlightColor = lipgloss.Color("#00FFFF") // Cyan

	// Text styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	highlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)
)

// State formatters
func formatState(state string) string {
	switch state {
	case "Running":
		return successStyle.Render("✓ Running")
	case "Starting", "Restarting":
		return highlightStyle.Render("● " + state)
	case "Stopping":
		return warnStyle.Render("● Stopping")
	case "Stopped", "Deleted":
		return dimStyle.Render("○ " + state)
	case "Errored":
		return errorStyle.Render("✗ Errored")
	default:
		return state
	}
}

func formatLogLevel(level string) string {
	switch level {
	case "ERROR", "error":
		return errorStyle.Render(level)
	case "WARN", "warn", "WARNING":
		return warnStyle.Render(level)
	case "INFO", "info":
		return successStyle.Render(level)
	case "DEBUG", "debug":
		return dimStyle.Render(level)
	default:
		return level
	}
}
