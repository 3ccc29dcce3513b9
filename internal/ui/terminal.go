package ui

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// DefaultWidth is the fallback column count.
const DefaultWidth = 100

func envIs(key, want string) bool {
	return strings.TrimSpace(os.Getenv(key)) == want
}

// ShouldUseColor decides whether stdout gets ANSI colors. NO_COLOR (any
// value) beats CLICOLOR_FORCE=1, which beats CLICOLOR=0; otherwise color
// follows whether stdout is a terminal.
func ShouldUseColor() bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case envIs("CLICOLOR_FORCE", "1"):
		return true
	case envIs("CLICOLOR", "0"):
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth reports the width of stdout. A positive COLUMNS overrides
// the terminal size; anything unknown yields DefaultWidth.
func TerminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return DefaultWidth
	}
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		return w
	}
	return DefaultWidth
}
