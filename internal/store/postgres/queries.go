package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// projectColumns is the column list used for SELECT statements on the projects table.
const projectColumns = `id, name, description, owner_id, start_date, end_date,
	status, created_at, updated_at`

// taskColumns is the column list used for SELECT statements on the tasks table.
const taskColumns = `id, project_id, name, description, duration_days,
	start_date, end_date, parent_id, task_type, depends_on, crew_size,
	progress, is_critical, color, sort_order, created_at, updated_at`

const dependencyColumns = `id, project_id, predecessor_task_id, successor_task_id,
	dependency_type, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// whereBuilder accumulates positional WHERE clauses.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (w *whereBuilder) add(format string, arg any) {
	w.clauses = append(w.clauses, fmt.Sprintf(format, w.next()))
	w.args = append(w.args, arg)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *whereBuilder) page(limit, offset int) string {
	var s string
	if limit > 0 {
		s += " LIMIT " + w.next()
		w.args = append(w.args, limit)
	}
	if offset > 0 {
		s += " OFFSET " + w.next()
		w.args = append(w.args, offset)
	}
	return s
}

// requireRow maps a zero RowsAffected to sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- projects ---

func queryCreateProject(ctx context.Context, db executor, p *model.Project) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (
			id, name, description, owner_id, start_date, end_date,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.Name,
		nullString(p.Description),
		nullString(p.OwnerID),
		nullString(p.StartDate),
		nullString(p.EndDate),
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func queryGetProject(ctx context.Context, db executor, id string) (*model.Project, error) {
	row := db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func queryListProjects(ctx context.Context, db executor, filter model.ProjectFilter) ([]*model.Project, error) {
	var w whereBuilder
	if filter.OwnerID != "" {
		w.add("owner_id = %s", filter.OwnerID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		w.add("status = ANY(%s)", pq.Array(statuses))
	}

	q := `SELECT ` + projectColumns + ` FROM projects` + w.sql() + ` ORDER BY created_at DESC`
	q += w.page(filter.Limit, filter.Offset)

	rows, err := db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func queryUpdateProject(ctx context.Context, db executor, p *model.Project) error {
	return db.QueryRowContext(ctx, `
		UPDATE projects SET
			name = $2,
			description = $3,
			owner_id = $4,
			start_date = $5,
			end_date = $6,
			status = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID,
		p.Name,
		nullString(p.Description),
		nullString(p.OwnerID),
		nullString(p.StartDate),
		nullString(p.EndDate),
		string(p.Status),
	).Scan(&p.UpdatedAt)
}

func queryDeleteProject(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- tasks ---

func queryCreateTask(ctx context.Context, db executor, t *model.Task) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, project_id, name, description, duration_days,
			start_date, end_date, parent_id, task_type, depends_on, crew_size,
			progress, is_critical, color, sort_order, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17
		)`,
		t.ID,
		t.ProjectID,
		t.Name,
		nullString(t.Description),
		t.DurationDays,
		nullString(t.StartDate),
		nullString(t.EndDate),
		nullString(t.ParentID),
		string(t.Type),
		textArray(t.DependsOn),
		t.CrewSize,
		t.Progress,
		t.IsCritical,
		nullString(t.Color),
		t.SortOrder,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

func queryGetTask(ctx context.Context, db executor, id string) (*model.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func queryListTasks(ctx context.Context, db executor, filter model.TaskFilter) ([]*model.Task, int, error) {
	var w whereBuilder
	if filter.ProjectID != "" {
		w.add("project_id = %s", filter.ProjectID)
	}
	if filter.ParentID != "" {
		w.add("parent_id = %s", filter.ParentID)
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		w.add("task_type = ANY(%s)", pq.Array(types))
	}
	if filter.Search != "" {
		p := w.next()
		w.clauses = append(w.clauses,
			fmt.Sprintf("(name ILIKE '%%' || %s || '%%' OR description ILIKE '%%' || %s || '%%')", p, p))
		w.args = append(w.args, filter.Search)
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	q := "SELECT COUNT(*) OVER() AS total_count, " + taskColumns + " FROM tasks" + w.sql() +
		" ORDER BY sort_order ASC, created_at ASC"
	q += w.page(filter.Limit, filter.Offset)

	rows, err := db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	var total int
	for rows.Next() {
		var t *model.Task
		t, total, err = scanTaskWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, total, nil
}

func queryUpdateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		UPDATE tasks SET
			name = $2,
			description = $3,
			duration_days = $4,
			start_date = $5,
			end_date = $6,
			parent_id = $7,
			task_type = $8,
			crew_size = $9,
			progress = $10,
			is_critical = $11,
			color = $12,
			sort_order = $13,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID,
		t.Name,
		nullString(t.Description),
		t.DurationDays,
		nullString(t.StartDate),
		nullString(t.EndDate),
		nullString(t.ParentID),
		string(t.Type),
		t.CrewSize,
		t.Progress,
		t.IsCritical,
		nullString(t.Color),
		t.SortOrder,
	).Scan(&t.UpdatedAt)
}

func queryUpdateTaskDates(ctx context.Context, db executor, id, startDate, endDate string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tasks SET start_date = $2, end_date = $3, updated_at = NOW()
		WHERE id = $1`,
		id, nullString(startDate), nullString(endDate),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// queryUpdateSortOrders writes a whole reorder in one statement.
func queryUpdateSortOrders(ctx context.Context, db executor, updates []model.SortUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	ids := make([]string, len(updates))
	orders := make([]int64, len(updates))
	for i, u := range updates {
		ids[i] = u.TaskID
		orders[i] = int64(u.SortOrder)
	}
	_, err := db.ExecContext(ctx, `
		UPDATE tasks AS t
		SET sort_order = u.sort_order, updated_at = NOW()
		FROM unnest($1::text[], $2::int[]) AS u(id, sort_order)
		WHERE t.id = u.id`,
		pq.Array(ids), pq.Int64Array(orders),
	)
	return err
}

// queryDeleteTask removes the task and scrubs it from every depends_on list.
func queryDeleteTask(ctx context.Context, db executor, id string) error {
	if _, err := db.ExecContext(ctx, `
		UPDATE tasks SET depends_on = array_remove(depends_on, $1)
		WHERE $1 = ANY(depends_on)`, id); err != nil {
		return fmt.Errorf("detach successors: %w", err)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- dependencies ---

func queryUpsertDependency(ctx context.Context, db executor, d *model.Dependency) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO task_dependencies (
			id, project_id, predecessor_task_id, successor_task_id, dependency_type
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (predecessor_task_id, successor_task_id)
		DO UPDATE SET dependency_type = EXCLUDED.dependency_type, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		d.ID,
		nullString(d.ProjectID),
		d.PredecessorID,
		d.SuccessorID,
		string(d.Type),
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert dependency: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE tasks SET depends_on = array_append(depends_on, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(depends_on))`,
		d.SuccessorID, d.PredecessorID,
	)
	if err != nil {
		return fmt.Errorf("link successor: %w", err)
	}
	return nil
}

func queryRemoveDependency(ctx context.Context, db executor, predecessorID, successorID string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM task_dependencies
		WHERE predecessor_task_id = $1 AND successor_task_id = $2`,
		predecessorID, successorID,
	)
	if err != nil {
		return err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	res, err = db.ExecContext(ctx, `
		UPDATE tasks SET depends_on = array_remove(depends_on, $2), updated_at = NOW()
		WHERE id = $1 AND $2 = ANY(depends_on)`,
		successorID, predecessorID,
	)
	if err != nil {
		return fmt.Errorf("unlink successor: %w", err)
	}
	unlinked, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if deleted == 0 && unlinked == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryListDependencies(ctx context.Context, db executor, projectID string) ([]*model.Dependency, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+dependencyColumns+`
		FROM task_dependencies
		WHERE project_id = $1
		ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// --- todos ---

func queryAddTodo(ctx context.Context, db executor, td *model.TodoItem) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO todo_items (id, task_id, content, completed)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		td.ID, td.TaskID, td.Content, td.Completed,
	).Scan(&td.CreatedAt, &td.UpdatedAt)
}

func queryGetTodo(ctx context.Context, db executor, id string) (*model.TodoItem, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, task_id, content, completed, created_at, updated_at
		FROM todo_items WHERE id = $1`, id)
	return scanTodo(row)
}

func queryListTodos(ctx context.Context, db executor, taskID string) ([]*model.TodoItem, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, content, completed, created_at, updated_at
		FROM todo_items
		WHERE task_id = $1
		ORDER BY created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTodos(rows)
}

func queryUpdateTodo(ctx context.Context, db executor, td *model.TodoItem) error {
	return db.QueryRowContext(ctx, `
		UPDATE todo_items SET content = $2, completed = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		td.ID, td.Content, td.Completed,
	).Scan(&td.UpdatedAt)
}

func queryDeleteTodo(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- events ---

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, project_id, task_id, actor, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.Topic, nullString(e.ProjectID), nullString(e.TaskID), nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryGetEvents(ctx context.Context, db executor, taskID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, project_id, task_id, actor, payload, created_at
		FROM events
		WHERE task_id = $1
		ORDER BY created_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// --- configs ---

func querySetConfig(ctx context.Context, db executor, c *model.Config) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO configs (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
		RETURNING created_at, updated_at`,
		c.Key, []byte(c.Value),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func queryGetConfig(ctx context.Context, db executor, key string) (*model.Config, error) {
	row := db.QueryRowContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM configs WHERE key = $1`, key)
	return scanConfig(row)
}

func queryListConfigs(ctx context.Context, db executor, namespace string) ([]*model.Config, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM configs WHERE key LIKE $1 || ':%'
		ORDER BY key`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func queryListAllConfigs(ctx context.Context, db executor) ([]*model.Config, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM configs ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func queryDeleteConfig(ctx context.Context, db executor, key string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM configs WHERE key = $1`, key)
	if err != nil {
		return err
	}
	return requireRow(res)
}
