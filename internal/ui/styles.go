// Package ui styles terminal output for the constructum CLI.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent   = 74  // blue
	colorCmd      = 250 // light gray
	colorMuted    = 245 // medium gray
	colorCritical = 167 // red
	colorSummary  = 179 // amber
	colorDone     = 114 // green
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderCritical returns s in the critical-path (red) color.
func RenderCritical(s string) string { return render(colorCritical, s) }

// RenderSummary returns s in the summary-row (amber) color.
func RenderSummary(s string) string { return render(colorSummary, s) }

// RenderDone returns s in the completed (green) color.
func RenderDone(s string) string { return render(colorDone, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
