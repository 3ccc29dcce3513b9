package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/ui"
)

// helpRule restyles every match of re in the help text.
type helpRule struct {
	re    *regexp.Regexp
	apply func(re *regexp.Regexp, s string) string
}

var helpRules = []helpRule{
	{
		// Section titles: "Schedule:", "Flags:", "Available Commands:".
		re: regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`),
		apply: func(re *regexp.Regexp, s string) string {
			return re.ReplaceAllStringFunc(s, func(m string) string { return ui.RenderAccent(strings.TrimSpace(m)) })
		},
	},
	{
		// Command names in the two-space indented listing.
		re: regexp.MustCompile(`(?m)^(  )(\S+)(  )`),
		apply: func(re *regexp.Regexp, s string) string {
			return re.ReplaceAllString(s, "${1}"+ui.RenderCommand("${2}")+"${3}")
		},
	},
	{
		// Value types after a flag: "--days int".
		re: regexp.MustCompile(`(--?\S+\s+)(string|int|float|duration|strings|stringSlice|bool)\b`),
		apply: func(re *regexp.Regexp, s string) string {
			return re.ReplaceAllString(s, "${1}"+ui.RenderMuted("${2}"))
		},
	},
	{
		re: regexp.MustCompile(`\(default [^)]*\)`),
		apply: func(re *regexp.Regexp, s string) string {
			return re.ReplaceAllStringFunc(s, ui.RenderMuted)
		},
	},
}

func colorizeHelpOutput(s string) string {
	for _, r := range helpRules {
		s = r.apply(r.re, s)
	}
	return s
}

// colorizedHelpFunc renders cobra's usage text and restyles it when the
// terminal takes color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}
