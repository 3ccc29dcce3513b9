package server

import (
	"net/http"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// handleCreateTask handles POST /v1/projects/{id}/tasks.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in createTaskInput
	if !decodeBody(w, r, &in) {
		return
	}

	t, err := s.createTask(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// handleListTasks handles GET /v1/projects/{id}/tasks?parent=&type=a,b&search=&limit=&offset=.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		ProjectID: r.PathValue("id"),
		ParentID:  q.Get("parent"),
		Search:    q.Get("search"),
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	}
	for _, t := range queryList(r, "type") {
		filter.Types = append(filter.Types, model.TaskType(t))
	}

	tasks, total, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": nonNil(tasks),
		"total": total,
	})
}

// handleGetTask handles GET /v1/tasks/{id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOpError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTask handles PATCH /v1/tasks/{id}.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	t, err := s.updateTask(r.Context(), r.PathValue("id"), patch, actorOf(r))
	if err != nil {
		writeOpError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTask handles DELETE /v1/tasks/{id}.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteTask(r.Context(), r.PathValue("id"), actorOf(r)); err != nil {
		writeOpError(w, err, "task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetDates handles POST /v1/tasks/{id}/dates.
func (s *Server) handleSetDates(w http.ResponseWriter, r *http.Request) {
	var in datesInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.setDates(r.Context(), r.PathValue("id"), in, actorOf(r), "")
	if err != nil {
		writeOpError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handlePreviewCascade handles POST /v1/tasks/{id}/cascade/preview.
func (s *Server) handlePreviewCascade(w http.ResponseWriter, r *http.Request) {
	var in datesInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.previewCascade(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeOpError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleListDependencies handles GET /v1/projects/{id}/dependencies.
func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	deps, err := s.store.ListDependencies(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dependencies")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dependencies": nonNil(deps)})
}

// handleAddDependency handles POST /v1/projects/{id}/dependencies.
func (s *Server) handleAddDependency(w http.ResponseWriter, r *http.Request) {
	var in addDependencyInput
	if !decodeBody(w, r, &in) {
		return
	}

	d, err := s.addDependency(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "task")
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleRemoveDependency handles DELETE /v1/projects/{id}/dependencies?predecessor=&successor=.
func (s *Server) handleRemoveDependency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := s.removeDependency(r.Context(), r.PathValue("id"), q.Get("predecessor"), q.Get("successor"), actorOf(r))
	if err != nil {
		writeOpError(w, err, "dependency")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleViolations handles GET /v1/projects/{id}/violations.
func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	v, err := s.violations(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"violations": v})
}

// handleRows handles GET /v1/projects/{id}/rows?collapsed=a,b. Without a
// collapsed parameter the caller's saved view applies.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	collapsed := s.loadCollapsed(r.Context(), projectID, actorOf(r), queryList(r, "collapsed"), !r.URL.Query().Has("collapsed"))

	c, err := s.chart(r.Context(), projectID, collapsed)
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleConnectors handles GET /v1/projects/{id}/connectors?collapsed=a,b.
func (s *Server) handleConnectors(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	collapsed := s.loadCollapsed(r.Context(), projectID, actorOf(r), queryList(r, "collapsed"), !r.URL.Query().Has("collapsed"))

	c, err := s.chart(r.Context(), projectID, collapsed)
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timeline":   c.Timeline,
		"connectors": c.Connectors,
	})
}

// handleReorder handles POST /v1/projects/{id}/reorder.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var in reorderInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.reorder(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetView handles GET /v1/projects/{id}/view.
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, err := s.getView(r.Context(), r.PathValue("id"), actorOf(r))
	if err != nil {
		writeOpError(w, err, "view")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handlePutView handles PUT /v1/projects/{id}/view.
func (s *Server) handlePutView(w http.ResponseWriter, r *http.Request) {
	var in model.ViewState
	if !decodeBody(w, r, &in) {
		return
	}

	v, err := s.putView(r.Context(), r.PathValue("id"), actorOf(r), in)
	if err != nil {
		writeOpError(w, err, "project")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleGetEvents handles GET /v1/tasks/{id}/events.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.store.GetEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": nonNil(evts)})
}
