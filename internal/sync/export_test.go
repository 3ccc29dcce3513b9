package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/store/memstore"
)

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), memstore.New(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.ProjectCount != 0 || h.TaskCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

// seedSchedule builds two projects; prj-b has a two-task chain with a todo.
func seedSchedule(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	ms := memstore.New()
	for _, p := range []*model.Project{
		{ID: "prj-b", Name: "Second", Status: model.ProjectActive},
		{ID: "prj-a", Name: "First", Status: model.ProjectPlanning},
	} {
		if err := ms.CreateProject(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	for _, task := range []*model.Task{
		{ID: "tsk-2", ProjectID: "prj-b", Name: "Frame", SortOrder: 1, StartDate: "2025-01-06", EndDate: "2025-01-09"},
		{ID: "tsk-1", ProjectID: "prj-b", Name: "Pour", SortOrder: 0, StartDate: "2025-01-01", EndDate: "2025-01-05"},
	} {
		task.Type = model.TaskTypeTask
		if err := ms.CreateTask(ctx, task); err != nil {
			t.Fatal(err)
		}
	}
	if err := ms.UpsertDependency(ctx, &model.Dependency{
		ID: "dep-1", ProjectID: "prj-b", PredecessorID: "tsk-1", SuccessorID: "tsk-2", Type: model.FinishToStart,
	}); err != nil {
		t.Fatal(err)
	}
	if err := ms.AddTodo(ctx, &model.TodoItem{ID: "todo-1", TaskID: "tsk-1", Content: "order concrete"}); err != nil {
		t.Fatal(err)
	}
	if err := ms.SetConfig(ctx, &model.Config{Key: model.ViewKey("alice", "prj-b"), Value: json.RawMessage(`{"collapsed":[]}`)}); err != nil {
		t.Fatal(err)
	}
	return ms
}

func TestExportJSONL_Schedule(t *testing.T) {
	ms := seedSchedule(t)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	// header + 2 projects + 2 tasks + 1 dependency + 1 todo + 1 config
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.ProjectCount != 2 || h.TaskCount != 2 || h.DependencyCount != 1 || h.TodoCount != 1 || h.ConfigCount != 1 {
		t.Fatalf("header counts: %+v", h)
	}

	var types []string
	var ids []string
	for _, line := range lines[1:] {
		var rec struct {
			Type string `json:"type"`
			Data struct {
				ID  string `json:"id"`
				Key string `json:"key"`
			} `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		types = append(types, rec.Type)
		ids = append(ids, rec.Data.ID+rec.Data.Key)
	}

	wantTypes := "project,project,task,task,dependency,todo,config"
	if got := strings.Join(types, ","); got != wantTypes {
		t.Errorf("record types = %s, want %s", got, wantTypes)
	}
	// Projects by id, tasks in row order.
	wantIDs := "prj-a,prj-b,tsk-1,tsk-2,dep-1,todo-1,view:alice:prj-b"
	if got := strings.Join(ids, ","); got != wantIDs {
		t.Errorf("record ids = %s, want %s", got, wantIDs)
	}
}

func TestExportJSONL_StoreError(t *testing.T) {
	ms := seedSchedule(t)
	ms.Fail("ListDependencies", errBoom)

	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), ms, &buf)
	if err == nil || !strings.Contains(err.Error(), "list dependencies") {
		t.Fatalf("got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("partial output written on failure")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}

func TestBuild_DigestTracksContentOnly(t *testing.T) {
	ctx := context.Background()
	ms := seedSchedule(t)

	first, err := Build(ctx, ms, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(ctx, ms, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.Digest != second.Digest {
		t.Fatal("digest changed with only the timestamp")
	}
	if bytes.Equal(first.Data, second.Data) {
		t.Fatal("headers should differ by timestamp")
	}

	var h header
	if err := json.Unmarshal([]byte(nonEmptyLines(string(first.Data))[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Digest != first.Digest || !h.Timestamp.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("header = %+v", h)
	}

	if err := ms.UpdateTaskDates(ctx, "tsk-2", "2025-01-07", "2025-01-10"); err != nil {
		t.Fatal(err)
	}
	third, err := Build(ctx, ms, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if third.Digest == second.Digest {
		t.Fatal("digest ignored a date change")
	}
}
