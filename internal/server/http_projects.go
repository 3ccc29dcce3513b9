package server

import (
	"net/http"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// handleCreateProject handles POST /v1/projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in createProjectInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := s.createProject(r.Context(), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// handleListProjects handles GET /v1/projects?owner=&status=a,b&limit=&offset=.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	filter := model.ProjectFilter{
		OwnerID: r.URL.Query().Get("owner"),
		Limit:   queryInt(r, "limit"),
		Offset:  queryInt(r, "offset"),
	}
	for _, st := range queryList(r, "status") {
		filter.Status = append(filter.Status, model.ProjectStatus(st))
	}

	projects, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// handleGetProject handles GET /v1/projects/{id}.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProject handles PATCH /v1/projects/{id}.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var in updateProjectInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := s.updateProject(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProject handles DELETE /v1/projects/{id}.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteProject(r.Context(), r.PathValue("id"), actorOf(r)); err != nil {
		writeOpError(w, err, "project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
