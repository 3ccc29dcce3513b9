package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var taskRowColumns = []string{
	"id", "project_id", "name", "description", "duration_days",
	"start_date", "end_date", "parent_id", "task_type", "depends_on", "crew_size",
	"progress", "is_critical", "color", "sort_order", "created_at", "updated_at",
}

var taskWithTotalColumns = append([]string{"total_count"}, taskRowColumns...)

func date(iso string) time.Time {
	t, _ := time.Parse("2006-01-02", iso)
	return t
}

// addTaskRow adds a dated task row; dependsOn uses the TEXT[] wire form.
func addTaskRow(rows *sqlmock.Rows, lead []driver.Value, id, start, end, dependsOn string, sort int, now time.Time) *sqlmock.Rows {
	var s, e driver.Value
	if start != "" {
		s = date(start)
	}
	if end != "" {
		e = date(end)
	}
	vals := append(lead,
		id, "prj-1", "Task "+id, nil, 5,
		s, e, nil, "task", dependsOn, 0,
		0, false, nil, sort, now, now,
	)
	return rows.AddRow(vals...)
}

func TestScanHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}

	if jsonbBytes(nil) != nil {
		t.Error("jsonbBytes(nil) should be nil")
	}
	if string(jsonbBytes(json.RawMessage(`{"k":1}`))) != `{"k":1}` {
		t.Error("jsonbBytes should pass through")
	}

	if arr := textArray(nil); arr == nil || len(arr) != 0 {
		t.Errorf("textArray(nil) = %#v, want empty non-nil", arr)
	}

	if got := isoDate(sql.NullTime{}); got != "" {
		t.Errorf("isoDate(NULL) = %q", got)
	}
	if got := isoDate(sql.NullTime{Time: date("2025-03-09"), Valid: true}); got != "2025-03-09" {
		t.Errorf("isoDate = %q", got)
	}
}

func TestQueryCreateProject(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	p := &model.Project{
		ID: "prj-1", Name: "Tower", OwnerID: "alice", StartDate: "2025-01-01",
		Status: model.ProjectPlanning, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec("INSERT INTO projects").
		WithArgs("prj-1", "Tower", nil, "alice", "2025-01-01", nil, "planning", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateProject(context.Background(), db, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetProject(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "owner_id", "start_date", "end_date",
		"status", "created_at", "updated_at",
	}).AddRow("prj-1", "Tower", nil, "alice", date("2025-01-01"), nil, "active", now, now)
	mock.ExpectQuery("SELECT .+ FROM projects WHERE id = \\$1").WithArgs("prj-1").WillReturnRows(rows)

	p, err := queryGetProject(context.Background(), db, "prj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.StartDate != "2025-01-01" || p.EndDate != "" || p.Status != model.ProjectActive {
		t.Fatalf("got %+v", p)
	}
}

func TestQueryListProjects(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM projects WHERE owner_id = \\$1 AND status = ANY\\(\\$2\\) ORDER BY created_at DESC LIMIT \\$3").
		WithArgs("alice", "{\"active\"}", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "owner_id", "start_date", "end_date",
			"status", "created_at", "updated_at",
		}))

	got, err := queryListProjects(context.Background(), db, model.ProjectFilter{
		OwnerID: "alice", Status: []model.ProjectStatus{model.ProjectActive}, Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no projects, got %d", len(got))
	}
}

func TestQueryDeleteProject_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM projects WHERE id = \\$1").WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryDeleteProject(context.Background(), db, "nope"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryCreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	task := &model.Task{
		ID: "tsk-1", ProjectID: "prj-1", Name: "Pour", DurationDays: 3,
		StartDate: "2025-01-10", EndDate: "2025-01-12", Type: model.TaskTypeTask,
		SortOrder: 2, CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(
			"tsk-1", "prj-1", "Pour", nil, 3,
			"2025-01-10", "2025-01-12", nil, "task", "{}", 0,
			0, false, nil, 2, now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryCreateTask(context.Background(), db, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryGetTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := addTaskRow(sqlmock.NewRows(taskRowColumns), nil, "tsk-2", "2025-01-15", "2025-01-18", "{tsk-1,tsk-0}", 1, now)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").WithArgs("tsk-2").WillReturnRows(rows)

	task, err := queryGetTask(context.Background(), db, "tsk-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.StartDate != "2025-01-15" || task.EndDate != "2025-01-18" {
		t.Errorf("dates = %s..%s", task.StartDate, task.EndDate)
	}
	if len(task.DependsOn) != 2 || task.DependsOn[0] != "tsk-1" || task.DependsOn[1] != "tsk-0" {
		t.Errorf("depends_on = %v", task.DependsOn)
	}
	if task.ParentID != "" || task.Type != model.TaskTypeTask {
		t.Errorf("got parent=%q type=%q", task.ParentID, task.Type)
	}
}

func TestQueryGetTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := queryGetTask(context.Background(), db, "nope"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryListTasks(t *testing.T) {
	now := time.Now().UTC()

	for _, tc := range []struct {
		name      string
		filter    model.TaskFilter
		queryPat  string
		args      []driver.Value
		wantCount int
	}{
		{
			name:      "ByProject",
			filter:    model.TaskFilter{ProjectID: "prj-1"},
			queryPat:  "SELECT COUNT\\(\\*\\) OVER\\(\\) AS total_count, .+ FROM tasks WHERE project_id = \\$1 ORDER BY sort_order ASC, created_at ASC",
			args:      []driver.Value{"prj-1"},
			wantCount: 2,
		},
		{
			name:      "ByParentAndType",
			filter:    model.TaskFilter{ParentID: "tsk-s", Types: []model.TaskType{model.TaskTypeSubSummary}},
			queryPat:  "SELECT .+ FROM tasks WHERE parent_id = \\$1 AND task_type = ANY\\(\\$2\\) ORDER BY",
			args:      []driver.Value{"tsk-s", "{\"sub_summary\"}"},
			wantCount: 1,
		},
		{
			name:      "Search",
			filter:    model.TaskFilter{Search: "pour"},
			queryPat:  "SELECT .+ FROM tasks WHERE \\(name ILIKE .+ OR description ILIKE .+\\) ORDER BY",
			args:      []driver.Value{"pour"},
			wantCount: 1,
		},
		{
			name:      "Paged",
			filter:    model.TaskFilter{ProjectID: "prj-1", Limit: 5, Offset: 10},
			queryPat:  "SELECT .+ FROM tasks WHERE project_id = \\$1 ORDER BY .+ LIMIT \\$2 OFFSET \\$3",
			args:      []driver.Value{"prj-1", 5, 10},
			wantCount: 1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			rows := sqlmock.NewRows(taskWithTotalColumns)
			for i := 0; i < tc.wantCount; i++ {
				id := "tsk-" + string(rune('a'+i))
				addTaskRow(rows, []driver.Value{tc.wantCount}, id, "", "", "{}", i, now)
			}
			q := mock.ExpectQuery(tc.queryPat)
			if len(tc.args) > 0 {
				q = q.WithArgs(tc.args...)
			}
			q.WillReturnRows(rows)

			tasks, total, err := queryListTasks(context.Background(), db, tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tasks) != tc.wantCount || total != tc.wantCount {
				t.Fatalf("got %d tasks (total %d), want %d", len(tasks), total, tc.wantCount)
			}
			if tasks[0].DependsOn != nil {
				t.Errorf("empty depends_on should scan as nil, got %#v", tasks[0].DependsOn)
			}
		})
	}
}

func TestQueryUpdateTaskDates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE tasks SET start_date = \\$2, end_date = \\$3").
		WithArgs("tsk-1", "2025-02-01", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryUpdateTaskDates(context.Background(), db, "tsk-1", "2025-02-01", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryUpdateTaskDates_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE tasks SET start_date").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryUpdateTaskDates(context.Background(), db, "nope", "2025-02-01", "2025-02-02"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryUpdateSortOrders(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE tasks AS t SET sort_order = u.sort_order.+FROM unnest").
		WithArgs("{\"tsk-b\",\"tsk-a\"}", "{0,1}").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := queryUpdateSortOrders(context.Background(), db, []model.SortUpdate{
		{TaskID: "tsk-b", SortOrder: 0},
		{TaskID: "tsk-a", SortOrder: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryUpdateSortOrders_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	if err := queryUpdateSortOrders(context.Background(), db, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryDeleteTask(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE tasks SET depends_on = array_remove").WithArgs("tsk-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM tasks WHERE id = \\$1").WithArgs("tsk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryDeleteTask(context.Background(), db, "tsk-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryUpsertDependency(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	dep := &model.Dependency{
		ID: "dep-new", ProjectID: "prj-1", PredecessorID: "tsk-a", SuccessorID: "tsk-b",
		Type: model.StartToStart,
	}
	mock.ExpectQuery("INSERT INTO task_dependencies .+ ON CONFLICT \\(predecessor_task_id, successor_task_id\\)").
		WithArgs("dep-new", "prj-1", "tsk-a", "tsk-b", "SS").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("dep-old", now, now))
	mock.ExpectExec("UPDATE tasks SET depends_on = array_append").
		WithArgs("tsk-b", "tsk-a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := queryUpsertDependency(context.Background(), db, dep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dep.ID != "dep-old" {
		t.Errorf("upsert should keep the existing row id, got %q", dep.ID)
	}
}

func TestQueryRemoveDependency(t *testing.T) {
	for _, tc := range []struct {
		name              string
		deleted, unlinked int64
		wantErr           error
	}{
		{"both", 1, 1, nil},
		{"edge list only", 0, 1, nil},
		{"neither", 0, 0, sql.ErrNoRows},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec("DELETE FROM task_dependencies").WithArgs("tsk-a", "tsk-b").
				WillReturnResult(sqlmock.NewResult(0, tc.deleted))
			mock.ExpectExec("UPDATE tasks SET depends_on = array_remove").WithArgs("tsk-b", "tsk-a").
				WillReturnResult(sqlmock.NewResult(0, tc.unlinked))

			err := queryRemoveDependency(context.Background(), db, "tsk-a", "tsk-b")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestQueryListDependencies(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "project_id", "predecessor_task_id", "successor_task_id",
		"dependency_type", "created_at", "updated_at",
	}).
		AddRow("dep-1", "prj-1", "tsk-a", "tsk-b", "FS", now, now).
		AddRow("dep-2", nil, "tsk-b", "tsk-c", "FF", now, now)
	mock.ExpectQuery("SELECT .+ FROM task_dependencies WHERE project_id = \\$1").WithArgs("prj-1").WillReturnRows(rows)

	deps, err := queryListDependencies(context.Background(), db, "prj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deps) != 2 || deps[1].Type != model.FinishToFinish || deps[1].ProjectID != "" {
		t.Fatalf("got %+v", deps)
	}
}

func TestQueryTodos(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	td := &model.TodoItem{ID: "todo-1", TaskID: "tsk-1", Content: "order rebar"}

	mock.ExpectQuery("INSERT INTO todo_items").WithArgs("todo-1", "tsk-1", "order rebar", false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("SELECT .+ FROM todo_items WHERE task_id = \\$1").WithArgs("tsk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "content", "completed", "created_at", "updated_at"}).
			AddRow("todo-1", "tsk-1", "order rebar", true, now, now))
	mock.ExpectExec("DELETE FROM todo_items WHERE id = \\$1").WithArgs("todo-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := queryAddTodo(ctx, db, td); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !td.CreatedAt.Equal(now) {
		t.Errorf("created_at not populated")
	}
	list, err := queryListTodos(ctx, db, "tsk-1")
	if err != nil || len(list) != 1 || !list[0].Completed {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if err := queryDeleteTodo(ctx, db, "todo-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestQueryRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	e := &model.Event{Topic: "constructum.task.dates_changed", ProjectID: "prj-1", TaskID: "tsk-1", Payload: json.RawMessage(`{}`)}
	mock.ExpectQuery("INSERT INTO events").
		WithArgs("constructum.task.dates_changed", "prj-1", "tsk-1", nil, []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	if err := queryRecordEvent(context.Background(), db, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != 7 {
		t.Errorf("id = %d", e.ID)
	}
}

func TestQueryGetEvents(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "topic", "project_id", "task_id", "actor", "payload", "created_at"}).
		AddRow(int64(1), "constructum.task.created", "prj-1", "tsk-1", "alice", []byte(`{"id":"tsk-1"}`), now)
	mock.ExpectQuery("SELECT .+ FROM events WHERE task_id = \\$1").WithArgs("tsk-1").WillReturnRows(rows)

	events, err := queryGetEvents(context.Background(), db, "tsk-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].Actor != "alice" || string(events[0].Payload) != `{"id":"tsk-1"}` {
		t.Fatalf("got %+v", events)
	}
}

func TestQueryConfigs(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()
	c := &model.Config{Key: "view:alice:prj-1", Value: json.RawMessage(`{"collapsed":["tsk-s"]}`)}

	mock.ExpectQuery("INSERT INTO configs").WithArgs(c.Key, []byte(c.Value)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("SELECT key, value, created_at, updated_at FROM configs WHERE key LIKE").WithArgs("view").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "created_at", "updated_at"}).
			AddRow(c.Key, []byte(c.Value), now, now))
	mock.ExpectExec("DELETE FROM configs WHERE key = \\$1").WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	if err := querySetConfig(ctx, db, c); err != nil {
		t.Fatalf("set: %v", err)
	}
	list, err := queryListConfigs(ctx, db, "view")
	if err != nil || len(list) != 1 || list[0].Key != c.Key {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if err := queryDeleteConfig(ctx, db, "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestRunInTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET start_date").WithArgs("tsk-1", "2025-01-02", "2025-01-03").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.UpdateTaskDates(context.Background(), "tsk-1", "2025-01-02", "2025-01-03")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		// Nested calls reuse the open transaction.
		return tx.RunInTransaction(context.Background(), func(store.Store) error { return boom })
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
}

func TestRunInTransaction_PanicRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("recovered %v, want boom", r)
		}
	}()
	_ = s.RunInTransaction(context.Background(), func(store.Store) error { panic("boom") })
}
