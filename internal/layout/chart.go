package layout

import (
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/geometry"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// MinBarWidth keeps same-day and inverted tasks visible and grabbable.
const MinBarWidth = 6

// Metrics are the chart's fixed dimensions.
type Metrics struct {
	PixelsPerDay    float64 `json:"pixels_per_day"`
	RowHeight       int     `json:"row_height"`
	HeaderHeight    int     `json:"header_height"`
	LeftColumnWidth int     `json:"left_column_width"`
}

// DefaultMetrics returns the standard chart dimensions.
func DefaultMetrics() Metrics {
	return Metrics{
		PixelsPerDay:    60,
		RowHeight:       36,
		HeaderHeight:    56,
		LeftColumnWidth: 220,
	}
}

// RowCenter returns the y coordinate of the middle of row.
func (m Metrics) RowCenter(row int) float64 {
	return float64(m.HeaderHeight+row*m.RowHeight) + float64(m.RowHeight)/2
}

// Timeline is the date range the chart spans.
type Timeline struct {
	Origin string `json:"origin"`
	Days   int    `json:"days"`
}

// NewTimeline spans all dated tasks with one spare day on each side. With no
// dated task it is a single day starting today.
func NewTimeline(tasks []*model.Task, today time.Time) Timeline {
	var lo, hi string
	for _, t := range tasks {
		if t == nil || !t.HasDates() || !calendar.Valid(t.StartDate) || !calendar.Valid(t.EndDate) {
			continue
		}
		if lo == "" || t.StartDate < lo {
			lo = t.StartDate
		}
		if hi == "" || t.EndDate > hi {
			hi = t.EndDate
		}
	}
	if lo == "" {
		return Timeline{Origin: calendar.Format(today), Days: 1}
	}
	origin, _ := calendar.AddDays(lo, -1)
	last, _ := calendar.AddDays(hi, 1)
	days, _ := calendar.DaysBetweenISO(origin, last)
	return Timeline{Origin: origin, Days: days + 1}
}

// Width returns the timeline width in pixels.
func (tl Timeline) Width(m Metrics) int {
	return calendar.OffsetDays(tl.Days, m.PixelsPerDay)
}

// X returns the chart x coordinate of date, including the left column.
func (tl Timeline) X(date string, m Metrics) (float64, bool) {
	off, err := calendar.Offset(tl.Origin, date, m.PixelsPerDay)
	if err != nil {
		return 0, false
	}
	return float64(m.LeftColumnWidth + off), true
}

// BarRect places task's bar on row. It reports false when the task lacks a
// usable date pair.
func BarRect(t *model.Task, row int, tl Timeline, m Metrics) (geometry.Rect, bool) {
	if !t.HasDates() {
		return geometry.Rect{}, false
	}
	x0, ok := tl.X(t.StartDate, m)
	if !ok {
		return geometry.Rect{}, false
	}
	x1, ok := tl.X(t.EndDate, m)
	if !ok {
		return geometry.Rect{}, false
	}
	w := max(MinBarWidth, x1-x0)
	return geometry.Rect{StartX: x0, EndX: x0 + w, CenterY: m.RowCenter(row)}, true
}

// Connector is a routed dependency edge between two visible rows.
type Connector struct {
	PredecessorID string               `json:"predecessor_task_id"`
	SuccessorID   string               `json:"successor_task_id"`
	Type          model.ConstraintType `json:"dependency_type"`
	Path          geometry.Path        `json:"path"`
	D             string               `json:"d"`
}

// Connectors routes one connector per DependsOn edge whose two ends are both
// among rows and both dated. Everything else is skipped.
func Connectors(rows []*model.Task, lookup dependency.Lookup, tl Timeline, m Metrics) []Connector {
	rects := make(map[string]geometry.Rect, len(rows))
	for i, t := range rows {
		if r, ok := BarRect(t, i, tl, m); ok {
			rects[t.ID] = r
		}
	}

	var out []Connector
	for _, succ := range rows {
		to, ok := rects[succ.ID]
		if !ok {
			continue
		}
		for _, pid := range succ.DependsOn {
			from, ok := rects[pid]
			if !ok || pid == succ.ID {
				continue
			}
			typ := lookup.Type(pid, succ.ID)
			p := geometry.Connect(from, to, typ)
			out = append(out, Connector{
				PredecessorID: pid,
				SuccessorID:   succ.ID,
				Type:          p.Type,
				Path:          p,
				D:             p.D(),
			})
		}
	}
	return out
}

// Row is one rendered line of the chart.
type Row struct {
	Task        *model.Task    `json:"task"`
	Index       int            `json:"index"`
	Depth       int            `json:"depth"`
	HasChildren bool           `json:"has_children"`
	Collapsed   bool           `json:"collapsed"`
	Bar         *geometry.Rect `json:"bar,omitempty"`
}

// Chart is a fully laid out project.
type Chart struct {
	Metrics    Metrics     `json:"metrics"`
	Timeline   Timeline    `json:"timeline"`
	Rows       []Row       `json:"rows"`
	Connectors []Connector `json:"connectors"`
}

// Build lays out tasks: rows in sort order minus collapsed descendants, a
// timeline spanning every dated task (hidden ones included, so collapsing
// does not rescale the chart), bars and connectors.
func Build(tasks []*model.Task, collapsed Collapsed, lookup dependency.Lookup, m Metrics, today time.Time) Chart {
	rows := Rows(tasks, collapsed)
	tl := NewTimeline(tasks, today)
	depths := Depths(tasks)
	parents := HasChildren(tasks)

	out := Chart{
		Metrics:    m,
		Timeline:   tl,
		Rows:       make([]Row, len(rows)),
		Connectors: Connectors(rows, lookup, tl, m),
	}
	for i, t := range rows {
		r := Row{
			Task:        t,
			Index:       i,
			Depth:       depths[t.ID],
			HasChildren: parents[t.ID],
			Collapsed:   collapsed[t.ID],
		}
		if rect, ok := BarRect(t, i, tl, m); ok {
			r.Bar = &rect
		}
		out.Rows[i] = r
	}
	return out
}
