package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/ui"
)

var ganttCmd = &cobra.Command{
	Use:     "gantt <project-id>",
	Short:   "Draw a project's chart in the terminal",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var collapsed []string
		if cmd.Flags().Changed("collapsed") {
			collapsed, _ = cmd.Flags().GetStringSlice("collapsed")
		}
		if all, _ := cmd.Flags().GetBool("expand-all"); all {
			collapsed = []string{}
		}

		chart, err := sched.Rows(context.Background(), args[0], collapsed)
		if err != nil {
			return fmt.Errorf("laying out chart: %w", err)
		}
		if jsonOutput {
			printJSON(chart)
			return nil
		}

		width, _ := cmd.Flags().GetInt("width")
		if width <= 0 {
			width = ui.TerminalWidth()
		}
		showDeps, _ := cmd.Flags().GetBool("deps")
		renderGantt(os.Stdout, chart, ganttOptions{
			Width: width,
			Color: ui.ShouldUseColor(),
			Deps:  showDeps,
		})
		return nil
	},
}

const (
	ganttLabelWidth = 24
	ganttMinCols    = 10
)

type ganttOptions struct {
	Width int
	Color bool
	Deps  bool
}

// renderGantt draws one line per visible row: an indented label and a bar
// scaled so the whole timeline fits in the remaining columns.
func renderGantt(w io.Writer, chart *layout.Chart, opts ganttOptions) {
	cols := opts.Width - ganttLabelWidth - 3
	if cols < ganttMinCols {
		cols = ganttMinCols
	}
	tl := chart.Timeline
	perCol := max(1, (tl.Days+cols-1)/cols)
	used := (tl.Days + perCol - 1) / perCol

	last, _ := calendar.AddDays(tl.Origin, tl.Days-1)
	fmt.Fprintf(w, "%s  %s .. %s, %d days", padRight("", ganttLabelWidth), tl.Origin, last, tl.Days)
	if perCol > 1 {
		fmt.Fprintf(w, ", %d days per column", perCol)
	}
	fmt.Fprintln(w)

	names := make(map[string]string, len(chart.Rows))
	for _, row := range chart.Rows {
		names[row.Task.ID] = row.Task.Name
		fmt.Fprintf(w, "%s |%s|\n", padRight(rowLabel(row), ganttLabelWidth), barCells(row.Task, tl, perCol, used, opts.Color))
	}

	if opts.Deps && len(chart.Connectors) > 0 {
		fmt.Fprintln(w)
		for _, c := range chart.Connectors {
			fmt.Fprintf(w, "  %s -> %s (%s)\n", names[c.PredecessorID], names[c.SuccessorID], c.Type)
		}
	}
}

func rowLabel(row layout.Row) string {
	marker := "  "
	switch {
	case row.Collapsed:
		marker = "+ "
	case row.HasChildren:
		marker = "- "
	}
	return strings.Repeat("  ", row.Depth) + marker + row.Task.Name
}

// barCells returns used columns with the task's bar drawn in. Summary rows
// use '~'; other rows use '#' for the completed share and '=' for the rest.
func barCells(t *model.Task, tl layout.Timeline, perCol, used int, color bool) string {
	if !t.HasDates() {
		return strings.Repeat(" ", used)
	}
	startOff, err1 := calendar.DaysBetweenISO(tl.Origin, t.StartDate)
	endOff, err2 := calendar.DaysBetweenISO(tl.Origin, t.EndDate)
	if err1 != nil || err2 != nil || endOff < startOff {
		return strings.Repeat(" ", used)
	}
	c0 := calendar.Clamp(startOff/perCol, 0, used-1)
	c1 := calendar.Clamp(endOff/perCol, c0, used-1)
	n := c1 - c0 + 1

	var bar string
	if t.Type == model.TaskTypeSummary || t.Type == model.TaskTypeSubSummary {
		bar = strings.Repeat("~", n)
		if color {
			bar = ui.RenderSummary(bar)
		}
	} else {
		done := int(math.Round(float64(n) * float64(calendar.Clamp(t.Progress, 0, 100)) / 100))
		bar = strings.Repeat("#", done) + strings.Repeat("=", n-done)
		if color {
			switch {
			case t.IsCritical:
				bar = ui.RenderCritical(bar)
			case done == n:
				bar = ui.RenderDone(bar)
			default:
				bar = ui.RenderAccent(bar)
			}
		}
	}
	return strings.Repeat(" ", c0) + bar + strings.Repeat(" ", used-c1-1)
}

// padRight pads or truncates s to exactly n runes.
func padRight(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s + strings.Repeat(" ", n-len(r))
}

func init() {
	ganttCmd.Flags().StringSlice("collapsed", nil, "collapsed task ids (default: your saved view)")
	ganttCmd.Flags().Bool("expand-all", false, "ignore the saved view and show every row")
	ganttCmd.Flags().Int("width", 0, "output width (default: terminal width)")
	ganttCmd.Flags().Bool("deps", false, "list the dependencies drawn between visible rows")
}
