package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRows drains rows through scan.
func scanRows[T any](rows *sql.Rows, scan func(scannable) (*T, error)) ([]*T, error) {
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanProject scans a single row into a model.Project.
// The row must contain columns in the order defined by projectColumns.
func scanProject(row scannable) (*model.Project, error) {
	var p model.Project
	var (
		description sql.NullString
		ownerID     sql.NullString
		startDate   sql.NullTime
		endDate     sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&ownerID,
		&startDate,
		&endDate,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.OwnerID = ownerID.String
	p.StartDate = isoDate(startDate)
	p.EndDate = isoDate(endDate)
	return &p, nil
}

func scanProjects(rows *sql.Rows) ([]*model.Project, error) {
	return scanRows(rows, scanProject)
}

// taskFields holds the nullable columns of a task row.
type taskFields struct {
	description sql.NullString
	startDate   sql.NullTime
	endDate     sql.NullTime
	parentID    sql.NullString
	dependsOn   pq.StringArray
	color       sql.NullString
}

func (f *taskFields) dest(t *model.Task) []any {
	return []any{
		&t.ID,
		&t.ProjectID,
		&t.Name,
		&f.description,
		&t.DurationDays,
		&f.startDate,
		&f.endDate,
		&f.parentID,
		&t.Type,
		&f.dependsOn,
		&t.CrewSize,
		&t.Progress,
		&t.IsCritical,
		&f.color,
		&t.SortOrder,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func (f *taskFields) fill(t *model.Task) {
	t.Description = f.description.String
	t.StartDate = isoDate(f.startDate)
	t.EndDate = isoDate(f.endDate)
	t.ParentID = f.parentID.String
	if len(f.dependsOn) > 0 {
		t.DependsOn = []string(f.dependsOn)
	}
	t.Color = f.color.String
}

// scanTask scans a single row into a model.Task.
// The row must contain columns in the order defined by taskColumns.
func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var f taskFields
	if err := row.Scan(f.dest(&t)...); err != nil {
		return nil, err
	}
	f.fill(&t)
	return &t, nil
}

// scanTaskWithTotal scans a row that has a leading total_count column
// followed by the standard task columns. Used by queryListTasks with
// COUNT(*) OVER().
func scanTaskWithTotal(row scannable) (*model.Task, int, error) {
	var total int
	var t model.Task
	var f taskFields
	if err := row.Scan(append([]any{&total}, f.dest(&t)...)...); err != nil {
		return nil, 0, err
	}
	f.fill(&t)
	return &t, total, nil
}

// scanDependency scans a single row into a model.Dependency.
func scanDependency(row scannable) (*model.Dependency, error) {
	var d model.Dependency
	var projectID sql.NullString
	err := row.Scan(
		&d.ID,
		&projectID,
		&d.PredecessorID,
		&d.SuccessorID,
		&d.Type,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ProjectID = projectID.String
	return &d, nil
}

func scanDependencies(rows *sql.Rows) ([]*model.Dependency, error) {
	return scanRows(rows, scanDependency)
}

// scanTodo scans a single row into a model.TodoItem.
func scanTodo(row scannable) (*model.TodoItem, error) {
	var td model.TodoItem
	err := row.Scan(&td.ID, &td.TaskID, &td.Content, &td.Completed, &td.CreatedAt, &td.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &td, nil
}

func scanTodos(rows *sql.Rows) ([]*model.TodoItem, error) {
	return scanRows(rows, scanTodo)
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		projectID sql.NullString
		taskID    sql.NullString
		actor     sql.NullString
		payload   []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &projectID, &taskID, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ProjectID = projectID.String
	e.TaskID = taskID.String
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	return scanRows(rows, scanEvent)
}

// scanConfig scans a single row into a model.Config.
func scanConfig(row scannable) (*model.Config, error) {
	var c model.Config
	var value []byte
	err := row.Scan(&c.Key, &value, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Value = json.RawMessage(value)
	return &c, nil
}

func scanConfigs(rows *sql.Rows) ([]*model.Config, error) {
	return scanRows(rows, scanConfig)
}

// isoDate formats a DATE column; NULL becomes the empty string.
func isoDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return calendar.Format(t.Time)
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// textArray converts a string slice to a TEXT[] value that is never NULL.
func textArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
