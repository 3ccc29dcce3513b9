// Package dependency holds the typed constraint model between tasks: the
// per-pair type lookup, the anchor table and constraint evaluation.
package dependency

import (
	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Endpoint names one end of a task bar.
type Endpoint string

const (
	Start Endpoint = "start"
	End   Endpoint = "end"
)

// Key identifies a dependency by its ordered (predecessor, successor) pair.
type Key struct {
	Predecessor string
	Successor   string
}

// Lookup answers the constraint type of an edge.
type Lookup interface {
	Type(predecessor, successor string) model.ConstraintType
}

// Map is an in-memory Lookup keyed by ordered pair. The zero value is not
// usable; build one with NewMap or make.
type Map map[Key]model.ConstraintType

// NewMap indexes deps by pair. Later entries for the same pair replace
// earlier ones; entries with an invalid type are ignored.
func NewMap(deps []*model.Dependency) Map {
	m := make(Map, len(deps))
	for _, d := range deps {
		if d == nil || !d.Type.IsValid() {
			continue
		}
		m[Key{d.PredecessorID, d.SuccessorID}] = d.Type
	}
	return m
}

// Type returns the recorded type for the pair, or FS when none is recorded.
// Callers decide whether the edge exists from the successor's DependsOn.
func (m Map) Type(predecessor, successor string) model.ConstraintType {
	if t, ok := m[Key{predecessor, successor}]; ok {
		return t
	}
	return model.FinishToStart
}

// Set records t for the pair, replacing any previous type.
func (m Map) Set(predecessor, successor string, t model.ConstraintType) {
	m[Key{predecessor, successor}] = t
}

// Delete removes the pair.
func (m Map) Delete(predecessor, successor string) {
	delete(m, Key{predecessor, successor})
}

// Anchors returns which end of the predecessor and which end of the
// successor a constraint of type t relates.
//
//	FS: P.end   -> S.start
//	SS: P.start -> S.start
//	FF: P.end   -> S.end
//	SF: P.start -> S.end
func Anchors(t model.ConstraintType) (pred, succ Endpoint) {
	switch t {
	case model.StartToStart:
		return Start, Start
	case model.FinishToFinish:
		return End, End
	case model.StartToFinish:
		return Start, End
	default:
		return End, Start
	}
}

// TypeFromEndpoints infers the constraint type from a connection drawn
// between two bar ends. Any pairing other than end->start, start->start and
// end->end is SF.
func TypeFromEndpoints(from, to Endpoint) model.ConstraintType {
	switch {
	case from == End && to == Start:
		return model.FinishToStart
	case from == Start && to == Start:
		return model.StartToStart
	case from == End && to == End:
		return model.FinishToFinish
	default:
		return model.StartToFinish
	}
}

// Date returns the date at the given endpoint of t, or "" when absent.
func Date(t *model.Task, e Endpoint) string {
	if e == Start {
		return t.StartDate
	}
	return t.EndDate
}

// Satisfied evaluates the constraint of type c between pred and succ.
// known is false when a date the constraint needs is absent, in which case
// ok is meaningless.
//
// FS requires the successor to start strictly after the predecessor ends,
// matching the inclusive trigger of the cascade. The other types compare
// the anchored dates with >=.
func Satisfied(c model.ConstraintType, pred, succ *model.Task) (ok, known bool) {
	pa, sa := Anchors(c)
	pd, sd := Date(pred, pa), Date(succ, sa)
	if pd == "" || sd == "" {
		return false, false
	}
	cmp := calendar.Compare(sd, pd)
	if c == model.FinishToStart || !c.IsValid() {
		return cmp > 0, true
	}
	return cmp >= 0, true
}

// Violation is an edge whose constraint does not hold for current dates.
type Violation struct {
	PredecessorID string               `json:"predecessor_task_id"`
	SuccessorID   string               `json:"successor_task_id"`
	Type          model.ConstraintType `json:"dependency_type"`
	PredecessorAt string               `json:"predecessor_date"`
	SuccessorAt   string               `json:"successor_date"`
}

// Violations lists every edge (taken from each task's DependsOn, in task
// order) whose constraint is unsatisfied. Edges to unknown tasks and edges
// with missing dates are skipped. Nothing is adjusted.
func Violations(tasks []*model.Task, lookup Lookup) []Violation {
	byID := make(map[string]*model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var out []Violation
	for _, succ := range tasks {
		for _, pid := range succ.DependsOn {
			pred, found := byID[pid]
			if !found {
				continue
			}
			c := lookup.Type(pid, succ.ID)
			ok, known := Satisfied(c, pred, succ)
			if !known || ok {
				continue
			}
			pa, sa := Anchors(c)
			out = append(out, Violation{
				PredecessorID: pid,
				SuccessorID:   succ.ID,
				Type:          c,
				PredecessorAt: Date(pred, pa),
				SuccessorAt:   Date(succ, sa),
			})
		}
	}
	return out
}
