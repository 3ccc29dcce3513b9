package layout

import (
	"math"
	"slices"

	"github.com/krushilnaik/constructum-mk2/internal/calendar"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// TargetIndex converts a vertical drag of dy pixels from row from into a
// destination row, clamped to [0, n-1].
func TargetIndex(from int, dy, rowHeight float64, n int) int {
	if n <= 0 {
		return 0
	}
	if rowHeight <= 0 {
		return calendar.Clamp(from, 0, n-1)
	}
	return calendar.Clamp(from+int(math.Round(dy/rowHeight)), 0, n-1)
}

// Result is the outcome of a reorder.
type Result struct {
	// Index is the moved task's new row, or -1 when from was out of range.
	Index int `json:"index"`
	// Moved is the number of rows that travelled together: the task plus
	// its contiguous descendants.
	Moved int `json:"moved"`
	// Changed is false when the rows ended up in their original order.
	Changed bool `json:"changed"`
	// Order is the new row order.
	Order []*model.Task `json:"-"`
	// Updates assigns every row its zero-based position as SortOrder.
	Updates []model.SortUpdate `json:"updates"`
}

// Reorder moves rows[from], together with the descendant rows directly
// below it, so that it lands at row to.
//
// A task whose parent is among rows stays inside the parent's span: it ends
// up after the parent and no further than just past the parent's last
// remaining descendant. A task dropped inside a sibling group's child
// range, or a top-level task inside any group's, is snapped out of it, below it when moving down and
// above it when moving up.
//
// The result always re-sequences every row from zero, which also repairs
// gaps and duplicate sort orders left by other writers.
func Reorder(rows []*model.Task, from, to int) Result {
	n := len(rows)
	if from < 0 || from >= n {
		return Result{Index: -1, Order: slices.Clone(rows), Updates: sequence(rows)}
	}
	idx := newIndex(rows)
	t := rows[from]
	end := blockEnd(rows, idx, from)
	k := end - from + 1

	rest := make([]*model.Task, 0, n-k)
	rest = append(rest, rows[:from]...)
	rest = append(rest, rows[end+1:]...)
	block := rows[from : end+1]

	ins := calendar.Clamp(to, 0, len(rest))
	if to == from {
		ins = from
	} else if pi := slices.IndexFunc(rest, func(r *model.Task) bool { return r.ID == t.ParentID }); t.ParentID != "" && pi >= 0 {
		// The parent's span in rest: the block came out of it.
		pe := blockEnd(rest, idx, pi)
		ins = snapOutOfGroup(rest, idx, pi+1, calendar.Clamp(ins, pi+1, pe+1), to > from)
	} else {
		ins = snapOutOfGroup(rest, idx, 0, ins, to > from)
	}

	order := make([]*model.Task, 0, n)
	order = append(order, rest[:ins]...)
	order = append(order, block...)
	order = append(order, rest[ins:]...)

	return Result{
		Index:   ins,
		Moved:   k,
		Changed: ins != from,
		Order:   order,
		Updates: sequence(order),
	}
}

// snapOutOfGroup moves an insertion point that falls strictly inside a
// group's child range to the group's edge. Only groups whose head is at
// row lo or later count, so a child stays inside its own parent.
func snapOutOfGroup(rest []*model.Task, idx index, lo, ins int, down bool) int {
	if ins <= lo || ins >= len(rest) {
		return ins
	}
	below := rest[ins]
	root := -1
	// Outermost ancestor of the row below the insertion point that sits
	// above the insertion point.
	idx.ancestors(below, func(p *model.Task) bool {
		if i := slices.Index(rest[lo:ins], p); i >= 0 {
			root = lo + i
		}
		return true
	})
	if root < 0 {
		return ins
	}
	if down {
		return blockEnd(rest, idx, root) + 1
	}
	return root
}

func sequence(rows []*model.Task) []model.SortUpdate {
	out := make([]model.SortUpdate, len(rows))
	for i, r := range rows {
		out[i] = model.SortUpdate{TaskID: r.ID, SortOrder: i}
	}
	return out
}
