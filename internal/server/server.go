package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/cascade"
	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/session"
	"github.com/krushilnaik/constructum-mk2/internal/store"
)

// SyncNotifier is told about every committed write. *sync.Scheduler
// satisfies it.
type SyncNotifier interface {
	Notify()
}

// Server holds the scheduling operations shared by the HTTP and gRPC
// transports.
type Server struct {
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	logger    *slog.Logger

	// Drags tracks open drag sessions.
	Drags *session.Tracker

	cascade cascade.Options
	metrics layout.Metrics
	sync    SyncNotifier
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithCascadeOptions sets the options every cascade run uses.
func WithCascadeOptions(o cascade.Options) Option {
	return func(s *Server) { s.cascade = o }
}

// WithMetrics overrides the chart dimensions used for bars, connectors and
// drag snapping.
func WithMetrics(m layout.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSyncNotifier asks n for an early export after each write.
func WithSyncNotifier(n SyncNotifier) Option {
	return func(s *Server) { s.sync = n }
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a Server backed by the given store and publisher.
func New(st store.Store, p events.Publisher, opts ...Option) *Server {
	s := &Server{
		store:     st,
		publisher: p,
		sseHub:    newSSEHub(),
		logger:    slog.Default(),
		metrics:   layout.DefaultMetrics(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	s.Drags = session.NewTracker(s.logger)
	return s
}

// recordAndPublish persists an event to the store, publishes it to NATS and
// fans it out to SSE clients. All three are best-effort; failures are logged
// but do not block the caller.
func (s *Server) recordAndPublish(ctx context.Context, topic, projectID, taskID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "topic", topic, "task_id", taskID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:     topic,
		ProjectID: projectID,
		TaskID:    taskID,
		Actor:     actor,
		Payload:   payload,
		CreatedAt: s.now(),
	}); err != nil {
		s.logger.Warn("failed to record event", "topic", topic, "task_id", taskID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "task_id", taskID, "error", err)
	}
	s.sseHub.broadcast(topic, projectID, payload)
	if s.sync != nil {
		s.sync.Notify()
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// invalid converts a model validation failure into an inputError.
func invalid(err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return inputError(ve.Error())
	}
	return err
}

// notFound reports whether err means the row does not exist.
func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, session.ErrNotFound)
}

// schedule is a project's tasks together with its dependency types.
type schedule struct {
	tasks  []*model.Task
	lookup dependency.Map
}

// find returns the task with id, or nil.
func (sc *schedule) find(id string) *model.Task {
	for _, t := range sc.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// loadSchedule reads every task and dependency of a project.
func (s *Server) loadSchedule(ctx context.Context, projectID string) (*schedule, error) {
	tasks, _, err := s.store.ListTasks(ctx, model.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	deps, err := s.store.ListDependencies(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	return &schedule{tasks: tasks, lookup: dependency.NewMap(deps)}, nil
}

// loadCollapsed resolves the collapsed set for a layout request: ids given
// explicitly win, otherwise the viewer's saved view is used.
func (s *Server) loadCollapsed(ctx context.Context, projectID, owner string, explicit []string, useView bool) layout.Collapsed {
	if !useView {
		return layout.NewCollapsed(explicit)
	}
	view, err := s.getView(ctx, projectID, owner)
	if err != nil {
		s.logger.Warn("failed to load view", "project_id", projectID, "owner", owner, "error", err)
		return layout.NewCollapsed(nil)
	}
	return layout.NewCollapsed(view.Collapsed)
}
