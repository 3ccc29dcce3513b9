package model

import (
	"fmt"
	"strings"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) err() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// validateName requires a non-blank name of at most 500 characters.
func (e *ValidationError) validateName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		e.add("name", "is required")
	} else if len([]rune(name)) > 500 {
		e.add("name", "must be 500 characters or fewer")
	}
}

// validateRange checks that optional start/end dates parse and, when
// ordered is set, that end is not before start.
func (e *ValidationError) validateRange(start, end string, ordered bool) {
	startOK := start == "" || calendar.Valid(start)
	endOK := end == "" || calendar.Valid(end)
	if !startOK {
		e.add("start_date", "invalid date %q (want YYYY-MM-DD)", start)
	}
	if !endOK {
		e.add("end_date", "invalid date %q (want YYYY-MM-DD)", end)
	}
	if ordered && startOK && endOK && inverted(start, end) {
		e.add("end_date", "must not be before start_date")
	}
}

func inverted(start, end string) bool {
	return start != "" && end != "" && calendar.Compare(end, start) < 0
}

// ValidateTask checks a Task for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the task is valid.
func ValidateTask(t *Task) error {
	return validateTask(t, true)
}

// ValidateTaskEdit checks next, an edited copy of prev. End before start is
// rejected only when the edit introduces it or requireOrder is set; a range
// prev already had inverted, as a start-only cascade leaves behind, stays
// editable.
func ValidateTaskEdit(next, prev *Task, requireOrder bool) error {
	return validateTask(next, requireOrder || !inverted(prev.StartDate, prev.EndDate))
}

func validateTask(t *Task, ordered bool) error {
	var ve ValidationError

	ve.validateName(t.Name)
	if strings.TrimSpace(t.ProjectID) == "" {
		ve.add("project_id", "is required")
	}
	if !t.Type.IsValid() {
		ve.add("task_type", "invalid value %q", t.Type)
	}
	ve.validateRange(t.StartDate, t.EndDate, ordered)
	if t.DurationDays < 0 {
		ve.add("duration_days", "must not be negative, got %d", t.DurationDays)
	}
	if t.CrewSize < 0 {
		ve.add("crew_size", "must not be negative, got %d", t.CrewSize)
	}
	if t.Progress < 0 || t.Progress > 100 {
		ve.add("progress", "must be between 0 and 100, got %d", t.Progress)
	}
	if t.ParentID != "" && t.ParentID == t.ID {
		ve.add("parent_id", "task cannot be its own parent")
	}
	for _, id := range t.DependsOn {
		if id == t.ID {
			ve.add("depends_on", "task cannot depend on itself")
			break
		}
	}

	return ve.err()
}

// ValidateProject checks a Project for constraint violations.
func ValidateProject(p *Project) error {
	var ve ValidationError

	ve.validateName(p.Name)
	if !p.Status.IsValid() {
		ve.add("status", "invalid value %q", p.Status)
	}
	ve.validateRange(p.StartDate, p.EndDate, true)

	return ve.err()
}

// ValidateDependency checks a Dependency for constraint violations.
func ValidateDependency(d *Dependency) error {
	var ve ValidationError

	if strings.TrimSpace(d.PredecessorID) == "" {
		ve.add("predecessor_task_id", "is required")
	}
	if strings.TrimSpace(d.SuccessorID) == "" {
		ve.add("successor_task_id", "is required")
	}
	if d.PredecessorID != "" && d.PredecessorID == d.SuccessorID {
		ve.add("successor_task_id", "task cannot depend on itself")
	}
	if !d.Type.IsValid() {
		ve.add("dependency_type", "invalid value %q", d.Type)
	}

	return ve.err()
}

// ValidateTodo checks a TodoItem for constraint violations.
func ValidateTodo(td *TodoItem) error {
	var ve ValidationError

	if strings.TrimSpace(td.TaskID) == "" {
		ve.add("task_id", "is required")
	}
	content := strings.TrimSpace(td.Content)
	if content == "" {
		ve.add("content", "is required")
	} else if len([]rune(content)) > 2000 {
		ve.add("content", "must be 2000 characters or fewer")
	}

	return ve.err()
}
