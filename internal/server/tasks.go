package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/idgen"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// createTaskInput holds transport-agnostic parameters for creating a task.
// A nil SortOrder appends the task below every existing row.
type createTaskInput struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	DurationDays int            `json:"duration_days"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	ParentID     string         `json:"parent_id"`
	Type         model.TaskType `json:"task_type"`
	CrewSize     int            `json:"crew_size"`
	Progress     int            `json:"progress"`
	IsCritical   bool           `json:"is_critical"`
	Color        string         `json:"color"`
	SortOrder    *int           `json:"sort_order"`
}

func (s *Server) createTask(ctx context.Context, projectID string, in createTaskInput, actor string) (*model.Task, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	id, err := idgen.Task()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	now := s.now()
	t := &model.Task{
		ID:           id,
		ProjectID:    projectID,
		Name:         in.Name,
		Description:  in.Description,
		DurationDays: in.DurationDays,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		ParentID:     in.ParentID,
		Type:         in.Type,
		CrewSize:     in.CrewSize,
		Progress:     in.Progress,
		IsCritical:   in.IsCritical,
		Color:        in.Color,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.Type == "" {
		t.Type = model.TaskTypeTask
	}
	if err := model.ValidateTask(t); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkParent(ctx, t); err != nil {
		return nil, err
	}

	if in.SortOrder != nil {
		t.SortOrder = *in.SortOrder
	} else {
		next, err := s.nextSortOrder(ctx, projectID)
		if err != nil {
			return nil, err
		}
		t.SortOrder = next
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskCreated, projectID, t.ID, actor, events.TaskCreated{Task: t})
	return t, nil
}

// nextSortOrder returns one past the largest sort order in the project.
func (s *Server) nextSortOrder(ctx context.Context, projectID string) (int, error) {
	tasks, _, err := s.store.ListTasks(ctx, model.TaskFilter{ProjectID: projectID})
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}
	next := 0
	for _, t := range tasks {
		if t.SortOrder >= next {
			next = t.SortOrder + 1
		}
	}
	return next, nil
}

// checkParent requires t's parent, when set, to be another task of the same
// project that is not one of t's descendants.
func (s *Server) checkParent(ctx context.Context, t *model.Task) error {
	seen := map[string]bool{t.ID: true}
	for id := t.ParentID; id != ""; {
		if seen[id] {
			return inputError("parent_id would create a cycle")
		}
		seen[id] = true
		p, err := s.store.GetTask(ctx, id)
		if notFound(err) {
			return inputError("parent task " + id + " not found")
		}
		if err != nil {
			return fmt.Errorf("get parent: %w", err)
		}
		if p.ProjectID != t.ProjectID {
			return inputError("parent task belongs to another project")
		}
		id = p.ParentID
	}
	return nil
}

// updateTask applies a partial update. A patch touching either date also
// cascades to FS successors, exactly like setDates.
func (s *Server) updateTask(ctx context.Context, id string, patch model.TaskPatch, actor string) (*model.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	old := t.Clone()

	patch.Apply(t)
	t.UpdatedAt = s.now()
	bothDates := patch.StartDate != nil && patch.EndDate != nil
	if err := model.ValidateTaskEdit(t, old, bothDates); err != nil {
		return nil, invalid(err)
	}
	if patch.ParentID != nil && t.ParentID != old.ParentID {
		if err := s.checkParent(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskUpdated, t.ProjectID, t.ID, actor, events.TaskUpdated{
		Task:    t,
		Changes: patchChanges(patch),
	})

	if patch.ChangesDates() && (t.StartDate != old.StartDate || t.EndDate != old.EndDate) {
		s.publishMove(ctx, t, old, actor, "")
		if _, err := s.cascadeFrom(ctx, t, actor); err != nil {
			s.logger.Warn("cascade after update failed", "task_id", t.ID, "error", err)
		}
	}
	return t, nil
}

// patchChanges lists the fields a patch sets, keyed by JSON name.
func patchChanges(p model.TaskPatch) map[string]any {
	changes := make(map[string]any)
	data, err := json.Marshal(p)
	if err != nil {
		return changes
	}
	_ = json.Unmarshal(data, &changes)
	return changes
}

func (s *Server) deleteTask(ctx context.Context, id, actor string) error {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.recordAndPublish(ctx, events.TopicTaskDeleted, t.ProjectID, id, actor, events.TaskDeleted{
		TaskID:    id,
		ProjectID: t.ProjectID,
	})
	return nil
}
