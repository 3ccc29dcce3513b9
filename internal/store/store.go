package store

import (
	"context"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Store defines the persistence interface for projects, tasks and their
// dependencies. Lookups of missing rows return sql.ErrNoRows.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, filter model.ProjectFilter) ([]*model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int, error) // returns tasks, total count, error
	UpdateTask(ctx context.Context, task *model.Task) error
	UpdateTaskDates(ctx context.Context, id, startDate, endDate string) error
	UpdateSortOrders(ctx context.Context, updates []model.SortUpdate) error
	DeleteTask(ctx context.Context, id string) error

	// Dependencies. UpsertDependency also appends the predecessor to the
	// successor's depends_on; RemoveDependency drops it again.
	UpsertDependency(ctx context.Context, dep *model.Dependency) error
	RemoveDependency(ctx context.Context, predecessorID, successorID string) error
	ListDependencies(ctx context.Context, projectID string) ([]*model.Dependency, error)

	// Todos
	AddTodo(ctx context.Context, todo *model.TodoItem) error
	GetTodo(ctx context.Context, id string) (*model.TodoItem, error)
	ListTodos(ctx context.Context, taskID string) ([]*model.TodoItem, error)
	UpdateTodo(ctx context.Context, todo *model.TodoItem) error
	DeleteTodo(ctx context.Context, id string) error

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	GetEvents(ctx context.Context, taskID string) ([]*model.Event, error)

	// Configs
	SetConfig(ctx context.Context, config *model.Config) error
	GetConfig(ctx context.Context, key string) (*model.Config, error)
	ListConfigs(ctx context.Context, namespace string) ([]*model.Config, error)
	ListAllConfigs(ctx context.Context) ([]*model.Config, error)
	DeleteConfig(ctx context.Context, key string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
