// Package cascade propagates a task's date change to its Finish-to-Start
// successors, transitively.
//
// Only FS edges adjust dates. SS, FF and SF edges are drawn and stored but
// never move a successor. The engine is a pure function over in-memory
// tasks; callers apply the result to their own state and persist it.
package cascade

import (
	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Adjustment moves one successor's start date. NewEndDate is set only when
// the engine runs with PreserveDuration.
type Adjustment struct {
	TaskID       string `json:"task_id"`
	NewStartDate string `json:"new_start_date"`
	NewEndDate   string `json:"new_end_date,omitempty"`
}

// Options tunes a cascade run.
type Options struct {
	// PreserveDuration shifts a moved successor's end date by the same
	// number of days as its start, both in the emitted adjustment and in
	// the view used to cascade further. When false only start dates move
	// and downstream tasks are evaluated against the stored end date.
	PreserveDuration bool
}

// Option mutates Options.
type Option func(*Options)

// PreserveDuration enables Options.PreserveDuration.
func PreserveDuration() Option {
	return func(o *Options) { o.PreserveDuration = true }
}

// WithOptions copies o wholesale.
func WithOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

// path is the chain of task ids on the current branch, newest first.
// Each recursive call extends its parent's path without copying, so two
// branches of a diamond never see each other's ids.
type path struct {
	id   string
	prev *path
}

func (p *path) contains(id string) bool {
	for ; p != nil; p = p.prev {
		if p.id == id {
			return true
		}
	}
	return false
}

type engine struct {
	successors map[string][]*model.Task
	lookup     dependency.Lookup
	opts       Options
}

// Compute returns the adjustments needed after changed (with its new dates
// already applied) so that every FS successor starts the day after its
// predecessor ends. The trigger is inclusive: a successor starting on the
// predecessor's end date is moved.
//
// Adjustments are ordered depth first: a successor's own adjustment comes
// before the adjustments cascading from it. The same task id may appear more
// than once when several branches reach it; apply in order and let the last
// one win (see Apply).
func Compute(changed *model.Task, tasks []*model.Task, lookup dependency.Lookup, opts ...Option) []Adjustment {
	if changed == nil {
		return nil
	}
	e := engine{
		successors: successorIndex(tasks),
		lookup:     lookup,
	}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e.walk(changed, nil, nil)
}

// successorIndex maps each predecessor id to the tasks listing it in
// DependsOn, in task-list order. A task naming the same predecessor twice is
// indexed once.
func successorIndex(tasks []*model.Task) map[string][]*model.Task {
	idx := make(map[string][]*model.Task)
	for _, t := range tasks {
		if t == nil {
			continue
		}
		seen := make(map[string]bool, len(t.DependsOn))
		for _, pid := range t.DependsOn {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			idx[pid] = append(idx[pid], t)
		}
	}
	return idx
}

func (e *engine) walk(changed *model.Task, visited *path, out []Adjustment) []Adjustment {
	if changed.EndDate == "" || visited.contains(changed.ID) {
		return out
	}
	newStart, err := calendar.AddDays(changed.EndDate, 1)
	if err != nil {
		return out
	}
	here := &path{id: changed.ID, prev: visited}

	for _, s := range e.successors[changed.ID] {
		if e.lookup.Type(changed.ID, s.ID) != model.FinishToStart {
			continue
		}
		if !s.HasDates() || !calendar.Valid(s.StartDate) {
			continue
		}
		if calendar.Compare(changed.EndDate, s.StartDate) < 0 {
			continue
		}

		adj := Adjustment{TaskID: s.ID, NewStartDate: newStart}
		next := s.Clone()
		next.StartDate = newStart
		if e.opts.PreserveDuration {
			if end, ok := shiftEnd(s, newStart); ok {
				next.EndDate = end
				adj.NewEndDate = end
			}
		}

		out = append(out, adj)
		out = e.walk(next, here, out)
	}
	return out
}

// shiftEnd moves s's end date by the distance its start moves to newStart.
func shiftEnd(s *model.Task, newStart string) (string, bool) {
	shift, err := calendar.DaysBetweenISO(s.StartDate, newStart)
	if err != nil {
		return "", false
	}
	end, err := calendar.AddDays(s.EndDate, shift)
	if err != nil {
		return "", false
	}
	return end, true
}

// Apply resolves adjustments against tasks with last-writer-wins per task
// id. It returns copies of the affected tasks in the order each was first
// adjusted; tasks is not modified. Adjustments naming unknown tasks are
// ignored.
func Apply(tasks []*model.Task, adjustments []Adjustment) []*model.Task {
	byID := make(map[string]*model.Task, len(tasks))
	for _, t := range tasks {
		if t != nil {
			byID[t.ID] = t
		}
	}

	updated := make(map[string]*model.Task)
	var order []*model.Task
	for _, a := range adjustments {
		c, ok := updated[a.TaskID]
		if !ok {
			orig, found := byID[a.TaskID]
			if !found {
				continue
			}
			c = orig.Clone()
			updated[a.TaskID] = c
			order = append(order, c)
		}
		c.StartDate = a.NewStartDate
		if a.NewEndDate != "" {
			c.EndDate = a.NewEndDate
		}
	}
	return order
}
