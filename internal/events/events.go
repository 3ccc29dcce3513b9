package events

import (
	"context"

	"github.com/krushilnaik/constructum-mk2/internal/cascade"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Event topic constants
const (
	TopicProjectCreated = "constructum.project.created"
	TopicProjectUpdated = "constructum.project.updated"
	TopicProjectDeleted = "constructum.project.deleted"

	TopicTaskCreated   = "constructum.task.created"
	TopicTaskUpdated   = "constructum.task.updated"
	TopicTaskDeleted   = "constructum.task.deleted"
	TopicTaskMoved     = "constructum.task.moved"
	TopicTaskCascaded  = "constructum.task.cascaded"
	TopicTaskReordered = "constructum.task.reordered"

	TopicDependencyAdded   = "constructum.dependency.added"
	TopicDependencyRemoved = "constructum.dependency.removed"

	TopicTodoAdded   = "constructum.todo.added"
	TopicTodoUpdated = "constructum.todo.updated"
	TopicTodoDeleted = "constructum.todo.deleted"

	// TopicAll matches every constructum subject.
	TopicAll = "constructum.>"
)

// Event types

type ProjectCreated struct {
	Project *model.Project `json:"project"`
}

type ProjectUpdated struct {
	Project *model.Project `json:"project"`
}

type ProjectDeleted struct {
	ProjectID string `json:"project_id"`
}

type TaskCreated struct {
	Task *model.Task `json:"task"`
}

type TaskUpdated struct {
	Task    *model.Task    `json:"task"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type TaskDeleted struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
}

// TaskMoved is emitted when a task's dates are set directly, either by an
// edit or at the end of a drag.
type TaskMoved struct {
	Task      *model.Task `json:"task"`
	OldStart  string      `json:"old_start_date,omitempty"`
	OldEnd    string      `json:"old_end_date,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// TaskCascaded carries the adjustments a date change pushed onto successors.
type TaskCascaded struct {
	ProjectID   string               `json:"project_id"`
	TriggerID   string               `json:"trigger_task_id"`
	Adjustments []cascade.Adjustment `json:"adjustments"`
}

type TaskReordered struct {
	ProjectID string             `json:"project_id"`
	TaskID    string             `json:"task_id"`
	Index     int                `json:"index"`
	Updates   []model.SortUpdate `json:"updates"`
}

type DependencyAdded struct {
	Dependency *model.Dependency `json:"dependency"`
}

type DependencyRemoved struct {
	ProjectID     string `json:"project_id"`
	PredecessorID string `json:"predecessor_task_id"`
	SuccessorID   string `json:"successor_task_id"`
}

type TodoAdded struct {
	Todo *model.TodoItem `json:"todo"`
}

type TodoUpdated struct {
	Todo *model.TodoItem `json:"todo"`
}

type TodoDeleted struct {
	TodoID string `json:"todo_id"`
	TaskID string `json:"task_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
