// Package layout turns a project's flat task list into chart rows: the
// visibility filter over collapsed groups, the row reorder transform and
// the bar and connector placement for rendering.
//
// Every function here tolerates malformed input. Dangling or cyclic
// parent_id chains end the ancestor walk; tasks without dates get no bar
// and no connector.
package layout

import (
	"cmp"
	"slices"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// Collapsed is the set of task ids whose descendants are hidden.
type Collapsed map[string]bool

// NewCollapsed builds a set from ids, ignoring empty strings.
func NewCollapsed(ids []string) Collapsed {
	c := make(Collapsed, len(ids))
	for _, id := range ids {
		if id != "" {
			c[id] = true
		}
	}
	return c
}

// index maps task id to task.
type index map[string]*model.Task

func newIndex(tasks []*model.Task) index {
	idx := make(index, len(tasks))
	for _, t := range tasks {
		if t != nil {
			idx[t.ID] = t
		}
	}
	return idx
}

// ancestors calls fn for each ancestor of t, nearest first, until fn
// returns false. The walk stops at a missing parent or a repeated id.
func (idx index) ancestors(t *model.Task, fn func(*model.Task) bool) {
	seen := map[string]bool{t.ID: true}
	for pid := t.ParentID; pid != "" && !seen[pid]; {
		seen[pid] = true
		p, ok := idx[pid]
		if !ok || !fn(p) {
			return
		}
		pid = p.ParentID
	}
}

// hidden reports whether any ancestor of t is collapsed.
func (idx index) hidden(t *model.Task, collapsed Collapsed) bool {
	if len(collapsed) == 0 {
		return false
	}
	found := false
	idx.ancestors(t, func(p *model.Task) bool {
		found = collapsed[p.ID]
		return !found
	})
	return found
}

// isDescendant reports whether t has ancestorID somewhere up its chain.
func (idx index) isDescendant(t *model.Task, ancestorID string) bool {
	found := false
	idx.ancestors(t, func(p *model.Task) bool {
		found = p.ID == ancestorID
		return !found
	})
	return found
}

func (idx index) depth(t *model.Task) int {
	d := 0
	idx.ancestors(t, func(*model.Task) bool {
		d++
		return true
	})
	return d
}

// Sorted returns tasks ordered by SortOrder. Ties keep input order.
func Sorted(tasks []*model.Task) []*model.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b *model.Task) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return out
}

// Visible returns the tasks, in input order, that have no collapsed
// ancestor. A collapsed task itself stays visible.
func Visible(tasks []*model.Task, collapsed Collapsed) []*model.Task {
	idx := newIndex(tasks)
	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || idx.hidden(t, collapsed) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Rows sorts tasks by SortOrder and drops hidden ones.
func Rows(tasks []*model.Task, collapsed Collapsed) []*model.Task {
	return Visible(Sorted(tasks), collapsed)
}

// Depths returns the nesting depth of every task, keyed by id. Top-level
// tasks and tasks with a dangling parent are depth 0.
func Depths(tasks []*model.Task) map[string]int {
	idx := newIndex(tasks)
	out := make(map[string]int, len(idx))
	for id, t := range idx {
		out[id] = idx.depth(t)
	}
	return out
}

// HasChildren returns the ids of tasks that at least one other task names
// as its parent. It reflects structure only; TaskType is not consulted.
func HasChildren(tasks []*model.Task) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tasks {
		if t != nil && t.ParentID != "" && t.ParentID != t.ID {
			out[t.ParentID] = true
		}
	}
	return out
}

// blockEnd returns the index of the last row of the contiguous run of
// descendants that follows rows[i]. A row with no descendants right after it
// is its own block.
func blockEnd(rows []*model.Task, idx index, i int) int {
	end := i
	for j := i + 1; j < len(rows); j++ {
		if !idx.isDescendant(rows[j], rows[i].ID) {
			break
		}
		end = j
	}
	return end
}
