package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/idgen"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

type addTodoInput struct {
	Content string `json:"content"`
}

type updateTodoInput struct {
	Content   *string `json:"content,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (s *Server) addTodo(ctx context.Context, taskID string, in addTodoInput, actor string) (*model.TodoItem, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	id, err := idgen.Todo()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	now := s.now()
	td := &model.TodoItem{
		ID:        id,
		TaskID:    taskID,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := model.ValidateTodo(td); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.AddTodo(ctx, td); err != nil {
		return nil, fmt.Errorf("add todo: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTodoAdded, t.ProjectID, taskID, actor, events.TodoAdded{Todo: td})
	return td, nil
}

func (s *Server) updateTodo(ctx context.Context, id string, in updateTodoInput, actor string) (*model.TodoItem, error) {
	td, err := s.store.GetTodo(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Content != nil {
		td.Content = *in.Content
	}
	if in.Completed != nil {
		td.Completed = *in.Completed
	}
	td.UpdatedAt = s.now()
	if err := model.ValidateTodo(td); err != nil {
		return nil, invalid(err)
	}
	if err := s.store.UpdateTodo(ctx, td); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}

	s.recordAndPublish(ctx, events.TopicTodoUpdated, s.projectOf(ctx, td.TaskID), td.TaskID, actor, events.TodoUpdated{Todo: td})
	return td, nil
}

func (s *Server) deleteTodo(ctx context.Context, id, actor string) error {
	td, err := s.store.GetTodo(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.recordAndPublish(ctx, events.TopicTodoDeleted, s.projectOf(ctx, td.TaskID), td.TaskID, actor, events.TodoDeleted{
		TodoID: id,
		TaskID: td.TaskID,
	})
	return nil
}

// projectOf returns the project of a task for event scoping, or "" when
// the task cannot be read.
func (s *Server) projectOf(ctx context.Context, taskID string) string {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return ""
	}
	return t.ProjectID
}

// handleListTodos handles GET /v1/tasks/{id}/todos.
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.ListTodos(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": nonNil(todos)})
}

// handleAddTodo handles POST /v1/tasks/{id}/todos.
func (s *Server) handleAddTodo(w http.ResponseWriter, r *http.Request) {
	var in addTodoInput
	if !decodeBody(w, r, &in) {
		return
	}

	td, err := s.addTodo(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusCreated, td)
}

// handleUpdateTodo handles PATCH /v1/todos/{id}.
func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var in updateTodoInput
	if !decodeBody(w, r, &in) {
		return
	}

	td, err := s.updateTodo(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "todo")
		return
	}
	writeJSON(w, http.StatusOK, td)
}

// handleDeleteTodo handles DELETE /v1/todos/{id}.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteTodo(r.Context(), r.PathValue("id"), actorOf(r)); err != nil {
		writeOpError(w, err, "todo")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
