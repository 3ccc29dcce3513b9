package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// HeaderActor names the request header identifying who made a change.
// It is recorded on events and selects the saved view of a project.
const HeaderActor = "X-Constructum-Actor"

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("POST /v1/projects", s.handleCreateProject)
	mux.HandleFunc("GET /v1/projects", s.handleListProjects)
	mux.HandleFunc("GET /v1/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PATCH /v1/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /v1/projects/{id}", s.handleDeleteProject)

	mux.HandleFunc("POST /v1/projects/{id}/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /v1/projects/{id}/tasks", s.handleListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /v1/tasks/{id}/dates", s.handleSetDates)
	mux.HandleFunc("POST /v1/tasks/{id}/cascade/preview", s.handlePreviewCascade)
	mux.HandleFunc("GET /v1/tasks/{id}/events", s.handleGetEvents)

	mux.HandleFunc("GET /v1/projects/{id}/dependencies", s.handleListDependencies)
	mux.HandleFunc("POST /v1/projects/{id}/dependencies", s.handleAddDependency)
	mux.HandleFunc("DELETE /v1/projects/{id}/dependencies", s.handleRemoveDependency)
	mux.HandleFunc("GET /v1/projects/{id}/violations", s.handleViolations)

	mux.HandleFunc("GET /v1/projects/{id}/rows", s.handleRows)
	mux.HandleFunc("GET /v1/projects/{id}/connectors", s.handleConnectors)
	mux.HandleFunc("POST /v1/projects/{id}/reorder", s.handleReorder)
	mux.HandleFunc("GET /v1/projects/{id}/view", s.handleGetView)
	mux.HandleFunc("PUT /v1/projects/{id}/view", s.handlePutView)

	mux.HandleFunc("POST /v1/tasks/{id}/drags", s.handleBeginDrag)
	mux.HandleFunc("GET /v1/drags", s.handleListDrags)
	mux.HandleFunc("PATCH /v1/drags/{sid}", s.handleUpdateDrag)
	mux.HandleFunc("POST /v1/drags/{sid}/end", s.handleEndDrag)
	mux.HandleFunc("DELETE /v1/drags/{sid}", s.handleCancelDrag)

	mux.HandleFunc("GET /v1/tasks/{id}/todos", s.handleListTodos)
	mux.HandleFunc("POST /v1/tasks/{id}/todos", s.handleAddTodo)
	mux.HandleFunc("PATCH /v1/todos/{id}", s.handleUpdateTodo)
	mux.HandleFunc("DELETE /v1/todos/{id}", s.handleDeleteTodo)

	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOpError maps an operation error to a response: inputError is a 400,
// a missing row a 404 naming what, anything else a 500.
func writeOpError(w http.ResponseWriter, err error, what string) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case notFound(err):
		writeError(w, http.StatusNotFound, what+" not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// actorOf returns the caller named by HeaderActor, if any.
func actorOf(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderActor))
}

// queryInt parses an integer query parameter, ignoring malformed values.
func queryInt(r *http.Request, key string) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// queryList splits a comma-separated query parameter, dropping blanks.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range strings.Split(r.URL.Query().Get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
