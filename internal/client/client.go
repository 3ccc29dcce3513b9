// Package client provides transport-agnostic interfaces for the constructum
// service, an HTTP/JSON implementation of the full API and a gRPC
// implementation of the scheduling reads.
package client

import (
	"context"

	"github.com/krushilnaik/constructum-mk2/internal/cascade"
	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// HeaderActor names who is making a change. The gRPC transport sends it as
// lower-case metadata.
const HeaderActor = "X-Constructum-Actor"

// Scheduler is the read side of the scheduling engine. Both transports
// implement it.
type Scheduler interface {
	Health(ctx context.Context) (string, error)
	PreviewCascade(ctx context.Context, taskID string, req *DatesRequest) (*MoveResult, error)
	// Rows lays out a project. A nil collapsed list selects the caller's
	// saved view; an empty one expands everything.
	Rows(ctx context.Context, projectID string, collapsed []string) (*layout.Chart, error)
	Connectors(ctx context.Context, projectID string, collapsed []string) (*ConnectorsResponse, error)
	Close() error
}

// Client is the full constructum API used by the CLI. It is implemented by
// HTTPClient.
type Client interface {
	Scheduler

	// Projects
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, req *ListProjectsRequest) ([]*model.Project, error)
	UpdateProject(ctx context.Context, id string, req *UpdateProjectRequest) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, projectID string, req *CreateTaskRequest) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, req *ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, id string, patch *model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	SetDates(ctx context.Context, id string, req *DatesRequest) (*MoveResult, error)

	// Dependencies
	AddDependency(ctx context.Context, projectID string, req *AddDependencyRequest) (*model.Dependency, error)
	RemoveDependency(ctx context.Context, projectID, predecessorID, successorID string) error
	ListDependencies(ctx context.Context, projectID string) ([]*model.Dependency, error)
	Violations(ctx context.Context, projectID string) ([]dependency.Violation, error)

	// Layout
	Reorder(ctx context.Context, projectID string, req *ReorderRequest) (*ReorderResult, error)
	GetView(ctx context.Context, projectID string) (*model.ViewState, error)
	PutView(ctx context.Context, projectID string, v *model.ViewState) (*model.ViewState, error)

	// Todos
	ListTodos(ctx context.Context, taskID string) ([]*model.TodoItem, error)
	AddTodo(ctx context.Context, taskID, content string) (*model.TodoItem, error)
	UpdateTodo(ctx context.Context, id string, req *UpdateTodoRequest) (*model.TodoItem, error)
	DeleteTodo(ctx context.Context, id string) error

	// Events
	GetEvents(ctx context.Context, taskID string) ([]*model.Event, error)
}

// CreateProjectRequest holds parameters for creating a project.
type CreateProjectRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	OwnerID     string              `json:"owner_id,omitempty"`
	StartDate   string              `json:"start_date,omitempty"`
	EndDate     string              `json:"end_date,omitempty"`
	Status      model.ProjectStatus `json:"status,omitempty"`
}

// ListProjectsRequest holds filters for listing projects.
type ListProjectsRequest struct {
	OwnerID string
	Status  string
	Limit   int
	Offset  int
}

// UpdateProjectRequest holds the fields to change on a project. Nil fields
// are left unchanged.
type UpdateProjectRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	StartDate   *string              `json:"start_date,omitempty"`
	EndDate     *string              `json:"end_date,omitempty"`
	Status      *model.ProjectStatus `json:"status,omitempty"`
}

// CreateTaskRequest holds parameters for creating a task. A nil SortOrder
// appends the task after the project's last row.
type CreateTaskRequest struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	DurationDays int            `json:"duration_days,omitempty"`
	StartDate    string         `json:"start_date,omitempty"`
	EndDate      string         `json:"end_date,omitempty"`
	ParentID     string         `json:"parent_id,omitempty"`
	Type         model.TaskType `json:"task_type,omitempty"`
	CrewSize     int            `json:"crew_size,omitempty"`
	Progress     int            `json:"progress,omitempty"`
	IsCritical   bool           `json:"is_critical,omitempty"`
	Color        string         `json:"color,omitempty"`
	SortOrder    *int           `json:"sort_order,omitempty"`
}

// ListTasksRequest holds filters for listing the tasks of a project.
type ListTasksRequest struct {
	ProjectID string
	ParentID  string
	Types     []string
	Search    string
	Limit     int
	Offset    int
}

// ListTasksResponse is one page of tasks.
type ListTasksResponse struct {
	Tasks []*model.Task `json:"tasks"`
	Total int           `json:"total"`
}

// DatesRequest changes a task's dates: either explicit dates or a whole-day
// shift of both.
type DatesRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	ShiftDays int     `json:"shift_days,omitempty"`
}

// MoveResult is the outcome of a date change: the task, the adjustments it
// caused and the successors after those adjustments.
type MoveResult struct {
	Task        *model.Task          `json:"task"`
	Adjustments []cascade.Adjustment `json:"adjustments"`
	Cascaded    []*model.Task        `json:"cascaded"`
}

// AddDependencyRequest links two tasks. An empty type means FS.
type AddDependencyRequest struct {
	PredecessorID string `json:"predecessor_task_id"`
	SuccessorID   string `json:"successor_task_id"`
	Type          string `json:"dependency_type,omitempty"`
	Cascade       bool   `json:"cascade,omitempty"`
}

// ConnectorsResponse is the routed connectors of a project with the
// timeline they were laid out on.
type ConnectorsResponse struct {
	Timeline   layout.Timeline    `json:"timeline"`
	Connectors []layout.Connector `json:"connectors"`
}

// ReorderRequest moves a task to a new visible row.
type ReorderRequest struct {
	TaskID    string   `json:"task_id"`
	To        int      `json:"to_index"`
	Collapsed []string `json:"collapsed,omitempty"`
}

// ReorderResult reports a reorder.
type ReorderResult struct {
	Index   int                `json:"index"`
	Moved   int                `json:"moved"`
	Changed bool               `json:"changed"`
	Updates []model.SortUpdate `json:"updates"`
}

// UpdateTodoRequest holds the fields to change on a todo item.
type UpdateTodoRequest struct {
	Content   *string `json:"content,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
