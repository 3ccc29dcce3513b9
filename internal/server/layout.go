package server

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// chart lays out a project for a viewer.
func (s *Server) chart(ctx context.Context, projectID string, collapsed layout.Collapsed) (*layout.Chart, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c := layout.Build(sc.tasks, collapsed, sc.lookup, s.metrics, s.now())
	c.Connectors = nonNil(c.Connectors)
	return &c, nil
}

// reorderInput moves a task to a new visible row.
type reorderInput struct {
	TaskID    string   `json:"task_id"`
	To        int      `json:"to_index"`
	Collapsed []string `json:"collapsed"`
}

// reorderResult reports a reorder. Index is the task's new visible row.
type reorderResult struct {
	Index   int                `json:"index"`
	Moved   int                `json:"moved"`
	Changed bool               `json:"changed"`
	Updates []model.SortUpdate `json:"updates"`
}

// reorder moves a task among the rows the viewer sees. Rows hidden under a
// collapsed ancestor travel with that ancestor, and every task of the
// project is re-sequenced from zero.
func (s *Server) reorder(ctx context.Context, projectID string, in reorderInput, actor string) (*reorderResult, error) {
	if in.TaskID == "" {
		return nil, inputError("task_id is required")
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, projectID)
	if err != nil {
		return nil, err
	}

	collapsed := layout.NewCollapsed(in.Collapsed)
	rows := layout.Rows(sc.tasks, collapsed)
	from := slices.IndexFunc(rows, func(t *model.Task) bool { return t.ID == in.TaskID })
	if from < 0 {
		return nil, inputError("task " + in.TaskID + " is not a visible row of the project")
	}

	res := layout.Reorder(rows, from, in.To)
	out := &reorderResult{Index: res.Index, Moved: res.Moved, Changed: res.Changed, Updates: []model.SortUpdate{}}

	// Stored orders are rewritten even when the rows did not move, so gaps
	// and duplicates left by other writers heal on the next reorder.
	order := withHidden(res.Order, layout.Sorted(sc.tasks))
	for i, t := range order {
		if t.SortOrder != i {
			out.Updates = append(out.Updates, model.SortUpdate{TaskID: t.ID, SortOrder: i})
		}
	}
	if len(out.Updates) == 0 {
		return out, nil
	}
	if err := s.store.UpdateSortOrders(ctx, out.Updates); err != nil {
		return nil, fmt.Errorf("update sort orders: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTaskReordered, projectID, in.TaskID, actor, events.TaskReordered{
		ProjectID: projectID,
		TaskID:    in.TaskID,
		Index:     res.Index,
		Updates:   out.Updates,
	})
	return out, nil
}

// withHidden expands a visible row order to every task: each hidden task
// follows its nearest visible ancestor, keeping its relative sorted order.
// Hidden tasks with no visible ancestor go last.
func withHidden(visible, sorted []*model.Task) []*model.Task {
	shown := make(map[string]bool, len(visible))
	for _, t := range visible {
		shown[t.ID] = true
	}
	byID := make(map[string]*model.Task, len(sorted))
	for _, t := range sorted {
		byID[t.ID] = t
	}

	under := make(map[string][]*model.Task)
	var orphans []*model.Task
	for _, t := range sorted {
		if shown[t.ID] {
			continue
		}
		anchor := ""
		seen := map[string]bool{t.ID: true}
		for p := byID[t.ParentID]; p != nil && !seen[p.ID]; p = byID[p.ParentID] {
			seen[p.ID] = true
			if shown[p.ID] {
				anchor = p.ID
				break
			}
		}
		if anchor == "" {
			orphans = append(orphans, t)
			continue
		}
		under[anchor] = append(under[anchor], t)
	}

	out := make([]*model.Task, 0, len(sorted))
	for _, t := range visible {
		out = append(out, t)
		out = append(out, under[t.ID]...)
	}
	return append(out, orphans...)
}

// getView returns owner's saved view of a project; an unsaved view is empty.
func (s *Server) getView(ctx context.Context, projectID, owner string) (*model.ViewState, error) {
	cfg, err := s.store.GetConfig(ctx, model.ViewKey(owner, projectID))
	if notFound(err) {
		return &model.ViewState{Collapsed: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}
	var v model.ViewState
	if err := json.Unmarshal(cfg.Value, &v); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	if v.Collapsed == nil {
		v.Collapsed = []string{}
	}
	return &v, nil
}

func (s *Server) putView(ctx context.Context, projectID, owner string, v model.ViewState) (*model.ViewState, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if v.Collapsed == nil {
		v.Collapsed = []string{}
	}
	value, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	now := s.now()
	if err := s.store.SetConfig(ctx, &model.Config{
		Key:       model.ViewKey(owner, projectID),
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("set view: %w", err)
	}
	return &v, nil
}
