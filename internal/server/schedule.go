package server

import (
	"context"
	"fmt"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/cascade"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// datesInput carries new dates for a task. A nil field keeps the current
// value; an empty string clears it. ShiftDays, when non-zero, moves both
// current dates instead and must not be combined with explicit dates.
type datesInput struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	ShiftDays int     `json:"shift_days,omitempty"`
}

// moveResult is the outcome of changing a task's dates.
type moveResult struct {
	Task        *model.Task          `json:"task"`
	Adjustments []cascade.Adjustment `json:"adjustments"`
	Cascaded    []*model.Task        `json:"cascaded"`
}

// applyDates returns a copy of t with in applied, validated.
func applyDates(t *model.Task, in datesInput) (*model.Task, error) {
	// Explicit start and end must be ordered; a shift keeps whatever
	// ordering the task already had.
	bothDates := in.ShiftDays == 0 && in.StartDate != nil && in.EndDate != nil
	if in.ShiftDays != 0 {
		if in.StartDate != nil || in.EndDate != nil {
			return nil, inputError("shift_days cannot be combined with start_date or end_date")
		}
		shifted, err := shiftDates(t, in.ShiftDays)
		if err != nil {
			return nil, err
		}
		in = shifted
	}
	if in.StartDate == nil && in.EndDate == nil {
		return nil, inputError("start_date, end_date or shift_days is required")
	}
	next := t.Clone()
	if in.StartDate != nil {
		next.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		next.EndDate = *in.EndDate
	}
	if err := model.ValidateTaskEdit(next, t, bothDates); err != nil {
		return nil, invalid(err)
	}
	return next, nil
}

// setDates writes a task's new dates and cascades the change to its FS
// successors. The trigger's own write must succeed; cascaded writes are
// best effort and a failure only logs, leaving the stored successor at its
// previous dates until the next edit.
func (s *Server) setDates(ctx context.Context, id string, in datesInput, actor, sessionID string) (*moveResult, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := applyDates(t, in)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateTaskDates(ctx, id, next.StartDate, next.EndDate); err != nil {
		return nil, fmt.Errorf("update task dates: %w", err)
	}
	next.UpdatedAt = s.now()
	s.publishMove(ctx, next, t, actor, sessionID)

	res, err := s.cascadeFrom(ctx, next, actor)
	if err != nil {
		return nil, err
	}
	res.Task = next
	return res, nil
}

// previewCascade computes what setDates would do without writing anything.
func (s *Server) previewCascade(ctx context.Context, id string, in datesInput) (*moveResult, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := applyDates(t, in)
	if err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}

	adj := cascade.Compute(next, sc.tasks, sc.lookup, cascade.WithOptions(s.cascade))
	return &moveResult{
		Task:        next,
		Adjustments: nonNil(adj),
		Cascaded:    nonNil(cascade.Apply(sc.tasks, adj)),
	}, nil
}

// cascadeFrom pushes changed's current dates onto its successors.
func (s *Server) cascadeFrom(ctx context.Context, changed *model.Task, actor string) (*moveResult, error) {
	sc, err := s.loadSchedule(ctx, changed.ProjectID)
	if err != nil {
		return nil, err
	}

	adj := cascade.Compute(changed, sc.tasks, sc.lookup, cascade.WithOptions(s.cascade))
	updated := cascade.Apply(sc.tasks, adj)
	for _, u := range updated {
		if err := s.store.UpdateTaskDates(ctx, u.ID, u.StartDate, u.EndDate); err != nil {
			s.logger.Warn("failed to persist cascaded dates",
				"trigger_id", changed.ID, "task_id", u.ID, "start_date", u.StartDate, "error", err)
		}
	}
	if len(adj) > 0 {
		s.recordAndPublish(ctx, events.TopicTaskCascaded, changed.ProjectID, changed.ID, actor, events.TaskCascaded{
			ProjectID:   changed.ProjectID,
			TriggerID:   changed.ID,
			Adjustments: adj,
		})
	}
	return &moveResult{Adjustments: nonNil(adj), Cascaded: nonNil(updated)}, nil
}

func (s *Server) publishMove(ctx context.Context, t, old *model.Task, actor, sessionID string) {
	s.recordAndPublish(ctx, events.TopicTaskMoved, t.ProjectID, t.ID, actor, events.TaskMoved{
		Task:      t,
		OldStart:  old.StartDate,
		OldEnd:    old.EndDate,
		SessionID: sessionID,
	})
}

// shiftDates moves both of t's dates by days.
func shiftDates(t *model.Task, days int) (datesInput, error) {
	start, err := calendar.AddDays(t.StartDate, days)
	if err != nil {
		return datesInput{}, inputError("task has no valid start date")
	}
	end, err := calendar.AddDays(t.EndDate, days)
	if err != nil {
		return datesInput{}, inputError("task has no valid end date")
	}
	return datesInput{StartDate: &start, EndDate: &end}, nil
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
