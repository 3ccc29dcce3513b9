package model

import (
	"slices"
	"time"
)

// TaskType classifies a row in the schedule. Summary rows group children;
// nothing enforces that a task-typed row has no children.
type TaskType string

const (
	TaskTypeTask       TaskType = "task"
	TaskTypeSummary    TaskType = "summary"
	TaskTypeSubSummary TaskType = "sub_summary"
)

// String returns the string representation of the task type.
func (t TaskType) String() string {
	return string(t)
}

// IsValid checks whether the task type is a known value.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeTask, TaskTypeSummary, TaskTypeSubSummary:
		return true
	}
	return false
}

// Task is a scheduled row in a project.
//
// StartDate and EndDate are ISO calendar dates; an empty string means the
// date is absent. ParentID is a back-reference only (empty for top-level
// rows). DependsOn lists predecessor ids in insertion order and is the
// authoritative edge list; the constraint type of each edge lives in the
// dependency table.
type Task struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DurationDays int       `json:"duration_days"`
	StartDate    string    `json:"start_date,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	ParentID     string    `json:"parent_id,omitempty"`
	Type         TaskType  `json:"task_type"`
	DependsOn    []string  `json:"depends_on,omitempty"`
	CrewSize     int       `json:"crew_size"`
	Progress     int       `json:"progress"`
	IsCritical   bool      `json:"is_critical"`
	Color        string    `json:"color,omitempty"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasDates reports whether both start and end dates are present.
func (t *Task) HasDates() bool {
	return t.StartDate != "" && t.EndDate != ""
}

// DependsOnTask reports whether id is one of t's predecessors.
func (t *Task) DependsOnTask(id string) bool {
	return slices.Contains(t.DependsOn, id)
}

// Clone returns a copy of t that shares no slices with it.
func (t *Task) Clone() *Task {
	c := *t
	c.DependsOn = slices.Clone(t.DependsOn)
	return &c
}

// SortUpdate is a single row position produced by a reorder.
type SortUpdate struct {
	TaskID    string `json:"task_id"`
	SortOrder int    `json:"sort_order"`
}

// TaskPatch carries a partial task update; nil fields are left unchanged.
// An empty string in StartDate, EndDate or ParentID clears the value.
type TaskPatch struct {
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	DurationDays *int      `json:"duration_days,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"`
	EndDate      *string   `json:"end_date,omitempty"`
	ParentID     *string   `json:"parent_id,omitempty"`
	Type         *TaskType `json:"task_type,omitempty"`
	CrewSize     *int      `json:"crew_size,omitempty"`
	Progress     *int      `json:"progress,omitempty"`
	IsCritical   *bool     `json:"is_critical,omitempty"`
	Color        *string   `json:"color,omitempty"`
}

// Apply copies the set fields of p onto t.
func (p *TaskPatch) Apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DurationDays != nil {
		t.DurationDays = *p.DurationDays
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.ParentID != nil {
		t.ParentID = *p.ParentID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.CrewSize != nil {
		t.CrewSize = *p.CrewSize
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.IsCritical != nil {
		t.IsCritical = *p.IsCritical
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
}

// ChangesDates reports whether applying p would touch either date.
func (p *TaskPatch) ChangesDates() bool {
	return p.StartDate != nil || p.EndDate != nil
}
