// Package session models drag interactions on the chart: moving a bar,
// dragging either of its edges and dragging a row to a new position.
//
// A session is begin, any number of updates, then end or cancel. Updates
// only compute a proposal; nothing is persisted until End, and ending with
// zero net displacement proposes no change at all.
package session

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Kind is what a drag manipulates.
type Kind string

const (
	Move        Kind = "move"
	ResizeStart Kind = "resize-start"
	ResizeEnd   Kind = "resize-end"
	Reorder     Kind = "reorder"
)

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case Move, ResizeStart, ResizeEnd, Reorder:
		return true
	}
	return false
}

var (
	// ErrNotDraggable is returned when moving or resizing a summary row,
	// whose span is derived from its children.
	ErrNotDraggable = errors.New("summary rows cannot be moved or resized")
	// ErrUndated is returned when moving or resizing a task without both dates.
	ErrUndated = errors.New("task has no start and end date")
)

// Session is one drag in progress. Its fields are a snapshot taken at
// Begin; later edits to the task do not affect it.
type Session struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	Actor     string    `json:"actor,omitempty"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Row       int       `json:"row"`
	RowCount  int       `json:"row_count"`
	StartedAt time.Time `json:"started_at"`

	metrics layout.Metrics
}

// Proposal is the state a session would commit for a displacement.
type Proposal struct {
	SessionID string `json:"session_id"`
	TaskID    string `json:"task_id"`
	Kind      Kind   `json:"kind"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	DeltaDays int    `json:"delta_days"`
	Row       int    `json:"row"`
	Changed   bool   `json:"changed"`
}

// Begin opens a session of kind on task, which currently renders at row out
// of rowCount visible rows.
func Begin(id string, task *model.Task, kind Kind, row, rowCount int, m layout.Metrics) (*Session, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown drag kind %q", kind)
	}
	if kind != Reorder {
		if task.Type == model.TaskTypeSummary || task.Type == model.TaskTypeSubSummary {
			return nil, ErrNotDraggable
		}
		if !task.HasDates() || !calendar.Valid(task.StartDate) || !calendar.Valid(task.EndDate) {
			return nil, ErrUndated
		}
	}
	if m.PixelsPerDay <= 0 || m.RowHeight <= 0 {
		m = layout.DefaultMetrics()
	}
	return &Session{
		ID:        id,
		Kind:      kind,
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		StartDate: task.StartDate,
		EndDate:   task.EndDate,
		Row:       row,
		RowCount:  rowCount,
		StartedAt: time.Now(),
		metrics:   m,
	}, nil
}

// Propose computes the outcome of a pointer displacement of (dx, dy)
// pixels from where the drag began.
func (s *Session) Propose(dx, dy float64) Proposal {
	p := Proposal{
		SessionID: s.ID,
		TaskID:    s.TaskID,
		Kind:      s.Kind,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Row:       s.Row,
	}

	if s.Kind == Reorder {
		p.Row = layout.TargetIndex(s.Row, dy, float64(s.metrics.RowHeight), s.RowCount)
		p.Changed = p.Row != s.Row
		return p
	}

	days := int(math.Round(dx / s.metrics.PixelsPerDay))
	p.DeltaDays = days
	if days == 0 {
		return p
	}

	switch s.Kind {
	case Move:
		p.StartDate = shift(s.StartDate, days)
		p.EndDate = shift(s.EndDate, days)
	case ResizeStart:
		p.StartDate = shift(s.StartDate, days)
		if p.StartDate > s.EndDate {
			p.StartDate = s.EndDate
		}
	case ResizeEnd:
		p.EndDate = shift(s.EndDate, days)
		if p.EndDate < s.StartDate {
			p.EndDate = s.StartDate
		}
	}
	p.Changed = p.StartDate != s.StartDate || p.EndDate != s.EndDate
	return p
}

// shift adds days to a date validated at Begin.
func shift(iso string, days int) string {
	out, err := calendar.AddDays(iso, days)
	if err != nil {
		return iso
	}
	return out
}
