// Package memstore is an in-memory store.Store. It backs tests and the
// "memory" database URL of the server; data does not survive a restart.
package memstore

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/model"
	"github.com/krushilnaik/constructum-mk2/internal/store"
)

// Store holds every table in maps guarded by a single mutex. Values are
// copied on the way in and out, so callers never share memory with it.
type Store struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	tasks    map[string]*model.Task
	deps     map[dependencyKey]*model.Dependency
	todos    map[string]*model.TodoItem
	events   []*model.Event
	configs  map[string]*model.Config
	nextEvt  int64
	failures map[string]error
	now      func() time.Time
}

type dependencyKey struct{ pred, succ string }

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		projects: make(map[string]*model.Project),
		tasks:    make(map[string]*model.Task),
		deps:     make(map[dependencyKey]*model.Dependency),
		todos:    make(map[string]*model.TodoItem),
		configs:  make(map[string]*model.Config),
		failures: make(map[string]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Fail makes every later call to the named method return err. A nil err
// clears the failure.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// --- projects ---

func (s *Store) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["CreateProject"]; err != nil {
		return err
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) GetProject(_ context.Context, id string) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetProject"]; err != nil {
		return nil, err
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProjects(_ context.Context, filter model.ProjectFilter) ([]*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListProjects"]; err != nil {
		return nil, err
	}
	var out []*model.Project
	for _, p := range s.projects {
		if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
			continue
		}
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, p.Status) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Project) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Store) UpdateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateProject"]; err != nil {
		return err
	}
	if _, ok := s.projects[p.ID]; !ok {
		return sql.ErrNoRows
	}
	p.UpdatedAt = s.now()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["DeleteProject"]; err != nil {
		return err
	}
	if _, ok := s.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.projects, id)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			s.deleteTaskLocked(tid)
		}
	}
	return nil
}

// --- tasks ---

func (s *Store) CreateTask(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["CreateTask"]; err != nil {
		return err
	}
	s.tasks[t.ID] = t.Clone()
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetTask"]; err != nil {
		return nil, err
	}
	t, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t.Clone(), nil
}

func (s *Store) ListTasks(_ context.Context, filter model.TaskFilter) ([]*model.Task, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListTasks"]; err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(filter.Search)
	var out []*model.Task
	for _, t := range s.tasks {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ParentID != "" && t.ParentID != filter.ParentID {
			continue
		}
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, t.Type) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b *model.Task) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	total := len(out)
	return page(out, filter.Limit, filter.Offset), total, nil
}

func (s *Store) UpdateTask(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateTask"]; err != nil {
		return err
	}
	cur, ok := s.tasks[t.ID]
	if !ok {
		return sql.ErrNoRows
	}
	t.UpdatedAt = s.now()
	next := t.Clone()
	// depends_on is owned by the dependency operations.
	next.DependsOn = cur.DependsOn
	s.tasks[t.ID] = next
	return nil
}

func (s *Store) UpdateTaskDates(_ context.Context, id, startDate, endDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateTaskDates"]; err != nil {
		return err
	}
	t, ok := s.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	t.StartDate, t.EndDate, t.UpdatedAt = startDate, endDate, s.now()
	return nil
}

func (s *Store) UpdateSortOrders(_ context.Context, updates []model.SortUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateSortOrders"]; err != nil {
		return err
	}
	for _, u := range updates {
		if t, ok := s.tasks[u.TaskID]; ok {
			t.SortOrder = u.SortOrder
		}
	}
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["DeleteTask"]; err != nil {
		return err
	}
	if _, ok := s.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	s.deleteTaskLocked(id)
	return nil
}

// deleteTaskLocked mirrors the foreign keys and the depends_on scrub of
// the SQL store.
func (s *Store) deleteTaskLocked(id string) {
	delete(s.tasks, id)
	for _, t := range s.tasks {
		if t.ParentID == id {
			t.ParentID = ""
		}
		t.DependsOn = slices.DeleteFunc(t.DependsOn, func(d string) bool { return d == id })
	}
	for k := range s.deps {
		if k.pred == id || k.succ == id {
			delete(s.deps, k)
		}
	}
	for tid, td := range s.todos {
		if td.TaskID == id {
			delete(s.todos, tid)
		}
	}
}

// --- dependencies ---

func (s *Store) UpsertDependency(_ context.Context, d *model.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpsertDependency"]; err != nil {
		return err
	}
	succ, ok := s.tasks[d.SuccessorID]
	if !ok {
		return sql.ErrNoRows
	}
	if _, ok := s.tasks[d.PredecessorID]; !ok {
		return sql.ErrNoRows
	}

	now := s.now()
	key := dependencyKey{d.PredecessorID, d.SuccessorID}
	if cur, ok := s.deps[key]; ok {
		d.ID, d.CreatedAt = cur.ID, cur.CreatedAt
	} else {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	cp := *d
	s.deps[key] = &cp

	if !succ.DependsOnTask(d.PredecessorID) {
		succ.DependsOn = append(succ.DependsOn, d.PredecessorID)
	}
	return nil
}

func (s *Store) RemoveDependency(_ context.Context, predecessorID, successorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["RemoveDependency"]; err != nil {
		return err
	}
	key := dependencyKey{predecessorID, successorID}
	_, had := s.deps[key]
	delete(s.deps, key)

	unlinked := false
	if succ, ok := s.tasks[successorID]; ok && succ.DependsOnTask(predecessorID) {
		succ.DependsOn = slices.DeleteFunc(succ.DependsOn, func(id string) bool { return id == predecessorID })
		unlinked = true
	}
	if !had && !unlinked {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) ListDependencies(_ context.Context, projectID string) ([]*model.Dependency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListDependencies"]; err != nil {
		return nil, err
	}
	var out []*model.Dependency
	for _, d := range s.deps {
		if d.ProjectID == projectID {
			cp := *d
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.Dependency) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// --- todos ---

func (s *Store) AddTodo(_ context.Context, td *model.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["AddTodo"]; err != nil {
		return err
	}
	if _, ok := s.tasks[td.TaskID]; !ok {
		return sql.ErrNoRows
	}
	td.CreatedAt = s.now()
	td.UpdatedAt = td.CreatedAt
	cp := *td
	s.todos[td.ID] = &cp
	return nil
}

func (s *Store) GetTodo(_ context.Context, id string) (*model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetTodo"]; err != nil {
		return nil, err
	}
	td, ok := s.todos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *td
	return &cp, nil
}

func (s *Store) ListTodos(_ context.Context, taskID string) ([]*model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListTodos"]; err != nil {
		return nil, err
	}
	var out []*model.TodoItem
	for _, td := range s.todos {
		if td.TaskID == taskID {
			cp := *td
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.TodoItem) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpdateTodo(_ context.Context, td *model.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["UpdateTodo"]; err != nil {
		return err
	}
	if _, ok := s.todos[td.ID]; !ok {
		return sql.ErrNoRows
	}
	td.UpdatedAt = s.now()
	cp := *td
	s.todos[td.ID] = &cp
	return nil
}

func (s *Store) DeleteTodo(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["DeleteTodo"]; err != nil {
		return err
	}
	if _, ok := s.todos[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.todos, id)
	return nil
}

// --- events ---

func (s *Store) RecordEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["RecordEvent"]; err != nil {
		return err
	}
	s.nextEvt++
	e.ID = s.nextEvt
	e.CreatedAt = s.now()
	cp := *e
	cp.Payload = append(json.RawMessage(nil), e.Payload...)
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) GetEvents(_ context.Context, taskID string) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetEvents"]; err != nil {
		return nil, err
	}
	var out []*model.Event
	for _, e := range s.events {
		if e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- configs ---

func (s *Store) SetConfig(_ context.Context, c *model.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["SetConfig"]; err != nil {
		return err
	}
	now := s.now()
	if cur, ok := s.configs[c.Key]; ok {
		c.CreatedAt = cur.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	s.configs[c.Key] = &cp
	return nil
}

func (s *Store) GetConfig(_ context.Context, key string) (*model.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["GetConfig"]; err != nil {
		return nil, err
	}
	c, ok := s.configs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListConfigs(ctx context.Context, namespace string) ([]*model.Config, error) {
	all, err := s.ListAllConfigs(ctx)
	if err != nil {
		return nil, err
	}
	prefix := namespace + ":"
	return slices.DeleteFunc(all, func(c *model.Config) bool {
		return !strings.HasPrefix(c.Key, prefix)
	}), nil
}

func (s *Store) ListAllConfigs(_ context.Context) ([]*model.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["ListAllConfigs"]; err != nil {
		return nil, err
	}
	var out []*model.Config
	for _, c := range s.configs {
		cp := *c
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Config) int { return cmp.Compare(a.Key, b.Key) })
	return out, nil
}

func (s *Store) DeleteConfig(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["DeleteConfig"]; err != nil {
		return err
	}
	if _, ok := s.configs[key]; !ok {
		return sql.ErrNoRows
	}
	delete(s.configs, key)
	return nil
}

// RunInTransaction calls fn with the store itself. Writes are not rolled
// back when fn fails.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *Store) Close() error {
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
