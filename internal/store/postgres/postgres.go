// Package postgres stores schedules in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore is a store.Store over a pooled *sql.DB.
type PostgresStore struct {
	conn
	db *sql.DB
}

var (
	_ store.Store = (*PostgresStore)(nil)
	_ store.Store = (*txStore)(nil)
)

// Pool limits applied by New.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connectTimeout  = 10 * time.Second
)

// New connects to databaseURL and migrates the schema to the latest
// version.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return newStore(db), nil
}

func newStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{conn: conn{db: db}, db: db}
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	target, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// RunInTransaction runs fn against a store bound to one transaction. It
// commits when fn returns nil and rolls back on an error or a panic.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&txStore{conn: conn{db: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// txStore is the store handed to a RunInTransaction callback.
type txStore struct {
	conn
}

// RunInTransaction joins the enclosing transaction.
func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close does nothing; the enclosing PostgresStore owns the connection.
func (s *txStore) Close() error { return nil }

// conn binds the query functions to an executor. It is shared by the
// pooled store and the transaction store.
type conn struct {
	db executor
}

func (c conn) CreateProject(ctx context.Context, p *model.Project) error {
	return queryCreateProject(ctx, c.db, p)
}

func (c conn) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return queryGetProject(ctx, c.db, id)
}

func (c conn) ListProjects(ctx context.Context, filter model.ProjectFilter) ([]*model.Project, error) {
	return queryListProjects(ctx, c.db, filter)
}

func (c conn) UpdateProject(ctx context.Context, p *model.Project) error {
	return queryUpdateProject(ctx, c.db, p)
}

func (c conn) DeleteProject(ctx context.Context, id string) error {
	return queryDeleteProject(ctx, c.db, id)
}

func (c conn) CreateTask(ctx context.Context, t *model.Task) error {
	return queryCreateTask(ctx, c.db, t)
}

func (c conn) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return queryGetTask(ctx, c.db, id)
}

func (c conn) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int, error) {
	return queryListTasks(ctx, c.db, filter)
}

func (c conn) UpdateTask(ctx context.Context, t *model.Task) error {
	return queryUpdateTask(ctx, c.db, t)
}

func (c conn) UpdateTaskDates(ctx context.Context, id, startDate, endDate string) error {
	return queryUpdateTaskDates(ctx, c.db, id, startDate, endDate)
}

func (c conn) UpdateSortOrders(ctx context.Context, updates []model.SortUpdate) error {
	return queryUpdateSortOrders(ctx, c.db, updates)
}

func (c conn) DeleteTask(ctx context.Context, id string) error {
	return queryDeleteTask(ctx, c.db, id)
}

func (c conn) UpsertDependency(ctx context.Context, dep *model.Dependency) error {
	return queryUpsertDependency(ctx, c.db, dep)
}

func (c conn) RemoveDependency(ctx context.Context, predecessorID, successorID string) error {
	return queryRemoveDependency(ctx, c.db, predecessorID, successorID)
}

func (c conn) ListDependencies(ctx context.Context, projectID string) ([]*model.Dependency, error) {
	return queryListDependencies(ctx, c.db, projectID)
}

func (c conn) AddTodo(ctx context.Context, td *model.TodoItem) error {
	return queryAddTodo(ctx, c.db, td)
}

func (c conn) GetTodo(ctx context.Context, id string) (*model.TodoItem, error) {
	return queryGetTodo(ctx, c.db, id)
}

func (c conn) ListTodos(ctx context.Context, taskID string) ([]*model.TodoItem, error) {
	return queryListTodos(ctx, c.db, taskID)
}

func (c conn) UpdateTodo(ctx context.Context, td *model.TodoItem) error {
	return queryUpdateTodo(ctx, c.db, td)
}

func (c conn) DeleteTodo(ctx context.Context, id string) error {
	return queryDeleteTodo(ctx, c.db, id)
}

func (c conn) RecordEvent(ctx context.Context, e *model.Event) error {
	return queryRecordEvent(ctx, c.db, e)
}

func (c conn) GetEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	return queryGetEvents(ctx, c.db, taskID)
}

func (c conn) SetConfig(ctx context.Context, config *model.Config) error {
	return querySetConfig(ctx, c.db, config)
}

func (c conn) GetConfig(ctx context.Context, key string) (*model.Config, error) {
	return queryGetConfig(ctx, c.db, key)
}

func (c conn) ListConfigs(ctx context.Context, namespace string) ([]*model.Config, error) {
	return queryListConfigs(ctx, c.db, namespace)
}

func (c conn) ListAllConfigs(ctx context.Context) ([]*model.Config, error) {
	return queryListAllConfigs(ctx, c.db)
}

func (c conn) DeleteConfig(ctx context.Context, key string) error {
	return queryDeleteConfig(ctx, c.db, key)
}
