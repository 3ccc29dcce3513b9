package server

import (
	"context"
	"fmt"

	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/idgen"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// addDependencyInput links two tasks. An empty type means FS.
type addDependencyInput struct {
	PredecessorID string `json:"predecessor_task_id"`
	SuccessorID   string `json:"successor_task_id"`
	Type          string `json:"dependency_type"`
	// Cascade applies the new constraint immediately by pushing the
	// successor out when the edge is FS and currently violated.
	Cascade bool `json:"cascade,omitempty"`
}

// addDependency stores an edge, replacing the type of an existing edge
// between the same tasks. Both tasks must belong to projectID.
func (s *Server) addDependency(ctx context.Context, projectID string, in addDependencyInput, actor string) (*model.Dependency, error) {
	typ := model.FinishToStart
	if in.Type != "" {
		t, err := model.ParseConstraintType(in.Type)
		if err != nil {
			return nil, inputError(err.Error())
		}
		typ = t
	}

	now := s.now()
	d := &model.Dependency{
		ProjectID:     projectID,
		PredecessorID: in.PredecessorID,
		SuccessorID:   in.SuccessorID,
		Type:          typ,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := model.ValidateDependency(d); err != nil {
		return nil, invalid(err)
	}
	pred, err := s.projectTask(ctx, projectID, d.PredecessorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projectTask(ctx, projectID, d.SuccessorID); err != nil {
		return nil, err
	}

	id, err := idgen.Dependency()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	d.ID = id
	if err := s.store.UpsertDependency(ctx, d); err != nil {
		return nil, fmt.Errorf("upsert dependency: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicDependencyAdded, projectID, d.SuccessorID, actor, events.DependencyAdded{Dependency: d})

	if in.Cascade && typ == model.FinishToStart {
		if _, err := s.cascadeFrom(ctx, pred, actor); err != nil {
			s.logger.Warn("cascade after new dependency failed", "predecessor_id", pred.ID, "error", err)
		}
	}
	return d, nil
}

// projectTask loads a task and checks it belongs to projectID.
func (s *Server) projectTask(ctx context.Context, projectID, id string) (*model.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if notFound(err) {
		return nil, inputError("task " + id + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if t.ProjectID != projectID {
		return nil, inputError("task " + id + " belongs to another project")
	}
	return t, nil
}

func (s *Server) removeDependency(ctx context.Context, projectID, predecessorID, successorID, actor string) error {
	if predecessorID == "" || successorID == "" {
		return inputError("predecessor and successor are required")
	}
	if err := s.store.RemoveDependency(ctx, predecessorID, successorID); err != nil {
		return err
	}
	s.recordAndPublish(ctx, events.TopicDependencyRemoved, projectID, successorID, actor, events.DependencyRemoved{
		ProjectID:     projectID,
		PredecessorID: predecessorID,
		SuccessorID:   successorID,
	})
	return nil
}

// violations lists the edges of a project whose constraint does not hold.
func (s *Server) violations(ctx context.Context, projectID string) ([]dependency.Violation, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return nonNil(dependency.Violations(sc.tasks, sc.lookup)), nil
}
