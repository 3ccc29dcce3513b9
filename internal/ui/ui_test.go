package ui

import (
	"strings"
	"testing"
)

func TestShouldUseColor_Env(t *testing.T) {
	for _, tc := range []struct {
		name    string
		noColor string
		force   string
		cli     string
		want    bool
	}{
		{"NoColorWins", "1", "1", "", false},
		{"Forced", "", "1", "", true},
		{"CliColorOff", "", "", "0", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tc.noColor)
			t.Setenv("CLICOLOR_FORCE", tc.force)
			t.Setenv("CLICOLOR", tc.cli)
			if got := ShouldUseColor(); got != tc.want {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	got := RenderCritical("slab")
	if !strings.HasPrefix(got, "\x1b[38;5;167m") || !strings.HasSuffix(got, "slab\x1b[0m") {
		t.Errorf("RenderCritical = %q", got)
	}

	noColor = true
	t.Cleanup(func() { noColor = false })
	if got := RenderSummary("phase"); got != "phase" {
		t.Errorf("RenderSummary without color = %q", got)
	}
}

func TestTerminalWidth(t *testing.T) {
	t.Setenv("COLUMNS", "42")
	if w := TerminalWidth(); w != 42 {
		t.Errorf("with COLUMNS=42: %d", w)
	}
	// Under go test stdout is a pipe.
	t.Setenv("COLUMNS", "junk")
	if w := TerminalWidth(); w <= 0 {
		t.Errorf("without COLUMNS: %d", w)
	}
}
