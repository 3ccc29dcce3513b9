package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/krushilnaik/constructum-mk2/internal/idgen"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/session"
)

// beginDragInput opens a drag. Collapsed is the viewer's collapsed set,
// which decides the row the task renders at.
type beginDragInput struct {
	Kind      session.Kind `json:"kind"`
	Collapsed []string     `json:"collapsed"`
}

// dragState is a session together with its current proposal.
type dragState struct {
	Session  *session.Session `json:"session"`
	Proposal session.Proposal `json:"proposal"`
}

// pointerInput is a pointer displacement in pixels from where the drag began.
type pointerInput struct {
	DX        float64  `json:"dx"`
	DY        float64  `json:"dy"`
	Collapsed []string `json:"collapsed,omitempty"`
}

// dragCommit is the outcome of ending a drag. Exactly one of Move and
// Reorder is set when Committed is true.
type dragCommit struct {
	Proposal  session.Proposal `json:"proposal"`
	Committed bool             `json:"committed"`
	Move      *moveResult      `json:"move,omitempty"`
	Reorder   *reorderResult   `json:"reorder,omitempty"`
}

func (s *Server) beginDrag(ctx context.Context, taskID string, in beginDragInput, actor string) (*dragState, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	sc, err := s.loadSchedule(ctx, t.ProjectID)
	if err != nil {
		return nil, err
	}
	rows := layout.Rows(sc.tasks, layout.NewCollapsed(in.Collapsed))
	row := slices.IndexFunc(rows, func(r *model.Task) bool { return r.ID == taskID })
	if row < 0 {
		return nil, inputError("task is hidden under a collapsed row")
	}

	id, err := idgen.Drag()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	sess, err := session.Begin(id, t, in.Kind, row, len(rows), s.metrics)
	if err != nil {
		return nil, inputError(err.Error())
	}
	sess.Actor = actor

	return &dragState{Session: sess, Proposal: s.Drags.Open(sess)}, nil
}

func (s *Server) updateDrag(sid string, in pointerInput) (*dragState, error) {
	p, err := s.Drags.Update(sid, in.DX, in.DY)
	if err != nil {
		return nil, err
	}
	sess, _ := s.Drags.Get(sid)
	return &dragState{Session: sess, Proposal: p}, nil
}

// endDrag closes a session and commits its final proposal. A drag that
// ends where it started commits nothing.
func (s *Server) endDrag(ctx context.Context, sid string, in pointerInput) (*dragCommit, error) {
	sess, p, err := s.Drags.End(sid, in.DX, in.DY)
	if err != nil {
		return nil, err
	}
	out := &dragCommit{Proposal: p}
	if !p.Changed {
		return out, nil
	}

	if sess.Kind == session.Reorder {
		res, err := s.reorder(ctx, sess.ProjectID, reorderInput{
			TaskID:    sess.TaskID,
			To:        p.Row,
			Collapsed: in.Collapsed,
		}, sess.Actor)
		if err != nil {
			return nil, err
		}
		out.Committed, out.Reorder = true, res
		return out, nil
	}

	start, end := p.StartDate, p.EndDate
	res, err := s.setDates(ctx, sess.TaskID, datesInput{StartDate: &start, EndDate: &end}, sess.Actor, sess.ID)
	if err != nil {
		return nil, err
	}
	out.Committed, out.Move = true, res
	return out, nil
}

// handleBeginDrag handles POST /v1/tasks/{id}/drags.
func (s *Server) handleBeginDrag(w http.ResponseWriter, r *http.Request) {
	var in beginDragInput
	if !decodeBody(w, r, &in) {
		return
	}

	st, err := s.beginDrag(r.Context(), r.PathValue("id"), in, actorOf(r))
	if err != nil {
		writeOpError(w, err, "task")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// handleListDrags handles GET /v1/drags.
func (s *Server) handleListDrags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"drags": s.Drags.List()})
}

// handleUpdateDrag handles PATCH /v1/drags/{sid}.
func (s *Server) handleUpdateDrag(w http.ResponseWriter, r *http.Request) {
	var in pointerInput
	if !decodeBody(w, r, &in) {
		return
	}

	st, err := s.updateDrag(r.PathValue("sid"), in)
	if err != nil {
		writeOpError(w, err, "drag session")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleEndDrag handles POST /v1/drags/{sid}/end.
func (s *Server) handleEndDrag(w http.ResponseWriter, r *http.Request) {
	var in pointerInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.endDrag(r.Context(), r.PathValue("sid"), in)
	if err != nil {
		what := "task"
		if errors.Is(err, session.ErrNotFound) {
			what = "drag session"
		}
		writeOpError(w, err, what)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCancelDrag handles DELETE /v1/drags/{sid}.
func (s *Server) handleCancelDrag(w http.ResponseWriter, r *http.Request) {
	if !s.Drags.Cancel(r.PathValue("sid")) {
		writeError(w, http.StatusNotFound, "drag session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
