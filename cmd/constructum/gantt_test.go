package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

func testChart() *layout.Chart {
	phase := &model.Task{ID: "p", Name: "Phase", Type: model.TaskTypeSummary, StartDate: "2024-01-01", EndDate: "2024-01-10"}
	a := &model.Task{ID: "a", Name: "A", Type: model.TaskTypeTask, StartDate: "2024-01-01", EndDate: "2024-01-05", Progress: 40}
	b := &model.Task{ID: "b", Name: "B", Type: model.TaskTypeTask, StartDate: "2024-01-06", EndDate: "2024-01-10", IsCritical: true}
	c := &model.Task{ID: "c", Name: "C", Type: model.TaskTypeTask}
	return &layout.Chart{
		Timeline: layout.Timeline{Origin: "2023-12-31", Days: 12},
		Rows: []layout.Row{
			{Task: phase, Index: 0, Depth: 0, HasChildren: true},
			{Task: a, Index: 1, Depth: 1},
			{Task: b, Index: 2, Depth: 1},
			{Task: c, Index: 3, Depth: 0},
		},
		Connectors: []layout.Connector{
			{PredecessorID: "a", SuccessorID: "b", Type: model.FinishToStart},
		},
	}
}

func TestRenderGantt_OneDayPerColumn(t *testing.T) {
	var buf bytes.Buffer
	renderGantt(&buf, testChart(), ganttOptions{Width: ganttLabelWidth + 3 + 12, Deps: true})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		padRight("", ganttLabelWidth) + "  2023-12-31 .. 2024-01-11, 12 days",
		padRight("- Phase", ganttLabelWidth) + " | ~~~~~~~~~~ |",
		padRight("    A", ganttLabelWidth) + " | ##===      |",
		padRight("    B", ganttLabelWidth) + " |      ===== |",
		padRight("  C", ganttLabelWidth) + " |            |",
		"",
		"  A -> B (FS)",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got %q\nwant %q", i, lines[i], want[i])
		}
	}
}

func TestRenderGantt_ScalesToWidth(t *testing.T) {
	var buf bytes.Buffer
	renderGantt(&buf, testChart(), ganttOptions{Width: ganttLabelWidth + 3 + 10})

	out := buf.String()
	if !strings.Contains(out, ", 2 days per column") {
		t.Errorf("header should mention the scale:\n%s", out)
	}
	// Twelve days in six columns; A covers days 1..5, columns 0..2.
	if !strings.Contains(out, "|#==   |") {
		t.Errorf("A bar not scaled:\n%s", out)
	}
	if strings.Contains(out, "->") {
		t.Errorf("dependencies listed without Deps:\n%s", out)
	}
}

func TestRenderGantt_CollapsedMarker(t *testing.T) {
	chart := testChart()
	chart.Rows = chart.Rows[:1]
	chart.Rows[0].Collapsed = true

	var buf bytes.Buffer
	renderGantt(&buf, chart, ganttOptions{Width: 80})
	if !strings.Contains(buf.String(), "+ Phase") {
		t.Errorf("collapsed row should be marked:\n%s", buf.String())
	}
}

func TestRenderGantt_Color(t *testing.T) {
	var buf bytes.Buffer
	renderGantt(&buf, testChart(), ganttOptions{Width: 80, Color: true})
	// Critical bars are red.
	if !strings.Contains(buf.String(), "\x1b[38;5;167m=====") {
		t.Errorf("critical bar not colored:\n%q", buf.String())
	}
}

func TestPadRight(t *testing.T) {
	for _, tc := range []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abc…"},
		{"Fundación", 9, "Fundación"},
	} {
		if got := padRight(tc.in, tc.n); got != tc.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
