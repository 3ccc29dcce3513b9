package main

import (
	"context"
	"testing"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

func TestDiffTasks(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name  string
		seen  map[string]time.Time
		tasks []*model.Task
		want  []string
	}{
		{
			name:  "InitialPoll",
			seen:  map[string]time.Time{},
			tasks: []*model.Task{{ID: "a", UpdatedAt: now}, {ID: "b", UpdatedAt: now}},
			want:  []string{"a", "b"},
		},
		{
			name:  "NoChanges",
			seen:  map[string]time.Time{"a": now, "b": now},
			tasks: []*model.Task{{ID: "a", UpdatedAt: now}, {ID: "b", UpdatedAt: now}},
		},
		{
			name:  "NewTask",
			seen:  map[string]time.Time{"a": now},
			tasks: []*model.Task{{ID: "a", UpdatedAt: now}, {ID: "b", UpdatedAt: now}},
			want:  []string{"b"},
		},
		{
			name:  "Cascaded",
			seen:  map[string]time.Time{"a": now, "b": now},
			tasks: []*model.Task{{ID: "a", UpdatedAt: now}, {ID: "b", UpdatedAt: now.Add(time.Minute)}},
			want:  []string{"b"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			changed := diffTasks(tc.tasks, tc.seen)
			if len(changed) != len(tc.want) {
				t.Fatalf("got %d changed, want %d", len(changed), len(tc.want))
			}
			for i, id := range tc.want {
				if changed[i].ID != id {
					t.Errorf("changed[%d] = %q, want %q", i, changed[i].ID, id)
				}
			}
			for _, task := range tc.tasks {
				if !tc.seen[task.ID].Equal(task.UpdatedAt) {
					t.Errorf("seen[%s] not updated", task.ID)
				}
			}
		})
	}
}

func TestDiffTasks_ZeroUpdatedAt(t *testing.T) {
	seen := make(map[string]time.Time)
	tasks := []*model.Task{{ID: "a"}}

	if changed := diffTasks(tasks, seen); len(changed) != 1 {
		t.Fatalf("got %d changed, want 1", len(changed))
	}
	if changed := diffTasks(tasks, seen); len(changed) != 0 {
		t.Fatalf("got %d changed on second call, want 0", len(changed))
	}
}

func TestAffectsProject(t *testing.T) {
	if !affectsProject(events.Message{ProjectID: "prj-1"}, "prj-1") {
		t.Error("same project should match")
	}
	if affectsProject(events.Message{ProjectID: "prj-2"}, "prj-1") {
		t.Error("other project should not match")
	}
	if !affectsProject(events.Message{Subject: events.TopicTaskDeleted}, "prj-1") {
		t.Error("unscoped message should match")
	}
}

func TestTaskWatcher_Refresh(t *testing.T) {
	ctx := context.Background()
	hc := useTestServer(t)
	p, err := hc.CreateProject(ctx, &client.CreateProjectRequest{Name: "Depot"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := hc.CreateTask(ctx, p.ID, &client.CreateTaskRequest{Name: "Survey", StartDate: "2024-01-01", EndDate: "2024-01-02"}); err != nil {
		t.Fatal(err)
	}

	w := newTaskWatcher(p.ID)
	if err := w.refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(w.seen) != 1 {
		t.Fatalf("seen %d tasks, want 1", len(w.seen))
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.refresh(cancelled); err != nil {
		t.Fatalf("cancelled refresh: %v", err)
	}
}
