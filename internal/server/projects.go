package server

import (
	"context"
	"fmt"

	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/idgen"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// createProjectInput holds transport-agnostic parameters for creating a project.
type createProjectInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	OwnerID     string              `json:"owner_id"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Status      model.ProjectStatus `json:"status"`
}

func (s *Server) createProject(ctx context.Context, in createProjectInput, actor string) (*model.Project, error) {
	id, err := idgen.Project()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	now := s.now()
	p := &model.Project{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}
	if err := model.ValidateProject(p); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicProjectCreated, p.ID, "", actor, events.ProjectCreated{Project: p})
	return p, nil
}

// updateProjectInput is a partial project update; nil means unchanged.
type updateProjectInput struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	OwnerID     *string              `json:"owner_id,omitempty"`
	StartDate   *string              `json:"start_date,omitempty"`
	EndDate     *string              `json:"end_date,omitempty"`
	Status      *model.ProjectStatus `json:"status,omitempty"`
}

func (s *Server) updateProject(ctx context.Context, id string, in updateProjectInput, actor string) (*model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.OwnerID != nil {
		p.OwnerID = *in.OwnerID
	}
	if in.StartDate != nil {
		p.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		p.EndDate = *in.EndDate
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	p.UpdatedAt = s.now()

	if err := model.ValidateProject(p); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicProjectUpdated, p.ID, "", actor, events.ProjectUpdated{Project: p})
	return p, nil
}

func (s *Server) deleteProject(ctx context.Context, id, actor string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.recordAndPublish(ctx, events.TopicProjectDeleted, id, "", actor, events.ProjectDeleted{ProjectID: id})
	return nil
}
