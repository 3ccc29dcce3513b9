package cascade

import (
	"reflect"
	"testing"

	"github.com/krushilnaik/constructum-mk2/internal/dependency"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

func task(id, start, end string, dependsOn ...string) *model.Task {
	return &model.Task{ID: id, StartDate: start, EndDate: end, DependsOn: dependsOn, Type: model.TaskTypeTask}
}

func fs(pairs ...[2]string) dependency.Map {
	m := dependency.Map{}
	for _, p := range pairs {
		m.Set(p[0], p[1], model.FinishToStart)
	}
	return m
}

func TestCompute_FSBasic(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	s := task("S", "2025-09-09", "2025-09-12", "P")

	got := Compute(p, []*model.Task{p, s}, fs([2]string{"P", "S"}))
	want := []Adjustment{{TaskID: "S", NewStartDate: "2025-09-11"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

func TestCompute_InclusiveBoundary(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	s := task("S", "2025-09-10", "2025-09-12", "P")

	got := Compute(p, []*model.Task{p, s}, dependency.Map{})
	if len(got) != 1 || got[0].NewStartDate != "2025-09-11" {
		t.Fatalf("adjacent-equal start should move, got %+v", got)
	}
}

func TestCompute_AlreadySatisfied(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	s := task("S", "2025-09-15", "2025-09-18", "P")

	if got := Compute(p, []*model.Task{p, s}, fs([2]string{"P", "S"})); len(got) != 0 {
		t.Fatalf("expected no adjustments, got %+v", got)
	}
}

func TestCompute_NonFSNeverCascades(t *testing.T) {
	for _, typ := range []model.ConstraintType{model.StartToStart, model.FinishToFinish, model.StartToFinish} {
		t.Run(string(typ), func(t *testing.T) {
			p := task("P", "2025-09-01", "2025-09-10")
			s := task("S", "2025-08-01", "2025-08-02", "P")
			m := dependency.Map{}
			m.Set("P", "S", typ)

			if got := Compute(p, []*model.Task{p, s}, m); len(got) != 0 {
				t.Fatalf("%s edge produced adjustments %+v", typ, got)
			}
		})
	}
}

func TestCompute_RequiresDependsOn(t *testing.T) {
	// A recorded type without a DependsOn entry is not an edge.
	p := task("P", "2025-09-01", "2025-09-10")
	s := task("S", "2025-09-01", "2025-09-12")

	if got := Compute(p, []*model.Task{p, s}, fs([2]string{"P", "S"})); len(got) != 0 {
		t.Fatalf("expected no adjustments, got %+v", got)
	}
}

func TestCompute_SkipsMissingDates(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	noStart := task("A", "", "2025-09-12", "P")
	noEnd := task("B", "2025-09-05", "", "P")
	ok := task("C", "2025-09-05", "2025-09-06", "P")

	got := Compute(p, []*model.Task{p, noStart, noEnd, ok}, dependency.Map{})
	want := []Adjustment{{TaskID: "C", NewStartDate: "2025-09-11"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}

	undated := task("P", "2025-09-01", "")
	if got := Compute(undated, []*model.Task{undated, ok}, dependency.Map{}); got != nil {
		t.Fatalf("changed task without end date should yield nil, got %+v", got)
	}
}

func TestCompute_Transitive(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	s1 := task("S1", "2025-09-09", "2025-09-12", "P")
	s2 := task("S2", "2025-09-12", "2025-09-14", "S1")
	tasks := []*model.Task{p, s1, s2}
	lookup := fs([2]string{"P", "S1"}, [2]string{"S1", "S2"})

	t.Run("start only", func(t *testing.T) {
		got := Compute(p, tasks, lookup)
		want := []Adjustment{
			{TaskID: "S1", NewStartDate: "2025-09-11"},
			{TaskID: "S2", NewStartDate: "2025-09-13"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Compute = %+v, want %+v", got, want)
		}
	})

	t.Run("preserve duration", func(t *testing.T) {
		got := Compute(p, tasks, lookup, PreserveDuration())
		want := []Adjustment{
			{TaskID: "S1", NewStartDate: "2025-09-11", NewEndDate: "2025-09-14"},
			{TaskID: "S2", NewStartDate: "2025-09-15", NewEndDate: "2025-09-17"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Compute = %+v, want %+v", got, want)
		}
	})

	// Input tasks are not mutated.
	if s1.StartDate != "2025-09-09" || s1.EndDate != "2025-09-12" {
		t.Errorf("input task mutated: %+v", s1)
	}
}

func TestCompute_CycleTerminates(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10", "S")
	s := task("S", "2025-09-05", "2025-09-12", "P")
	tasks := []*model.Task{p, s}

	for _, start := range []*model.Task{p, s} {
		got := Compute(start, tasks, dependency.Map{})
		if len(got) > len(tasks) {
			t.Fatalf("cascade from %s did not terminate sensibly: %+v", start.ID, got)
		}
	}

	got := Compute(p, tasks, dependency.Map{})
	want := []Adjustment{
		{TaskID: "S", NewStartDate: "2025-09-11"},
		{TaskID: "P", NewStartDate: "2025-09-13"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

func TestCompute_SelfLoop(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10", "P")
	got := Compute(p, []*model.Task{p}, dependency.Map{})
	want := []Adjustment{{TaskID: "P", NewStartDate: "2025-09-11"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}
}

func TestCompute_DiamondBranchesAreIndependent(t *testing.T) {
	//     P
	//    / \
	//   A   B
	//    \ /
	//     D
	p := task("P", "2025-09-01", "2025-09-10")
	a := task("A", "2025-09-05", "2025-09-20", "P")
	b := task("B", "2025-09-05", "2025-09-12", "P")
	d := task("D", "2025-09-13", "2025-09-15", "A", "B")
	tasks := []*model.Task{p, a, b, d}

	got := Compute(p, tasks, dependency.Map{})
	want := []Adjustment{
		{TaskID: "A", NewStartDate: "2025-09-11"},
		{TaskID: "D", NewStartDate: "2025-09-21"},
		{TaskID: "B", NewStartDate: "2025-09-11"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute = %+v, want %+v", got, want)
	}

	// With durations preserved B's end moves to 09-18 and D is reached
	// through both branches; the later entry wins on Apply.
	got = Compute(p, tasks, dependency.Map{}, PreserveDuration())
	want = []Adjustment{
		{TaskID: "A", NewStartDate: "2025-09-11", NewEndDate: "2025-09-26"},
		{TaskID: "D", NewStartDate: "2025-09-27", NewEndDate: "2025-09-29"},
		{TaskID: "B", NewStartDate: "2025-09-11", NewEndDate: "2025-09-18"},
		{TaskID: "D", NewStartDate: "2025-09-19", NewEndDate: "2025-09-21"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compute(preserve) = %+v, want %+v", got, want)
	}

	applied := Apply(tasks, got)
	if len(applied) != 3 {
		t.Fatalf("Apply returned %d tasks, want 3", len(applied))
	}
	if applied[1].ID != "D" || applied[1].StartDate != "2025-09-19" {
		t.Errorf("last writer should win for D, got %+v", applied[1])
	}
}

func TestCompute_Idempotent(t *testing.T) {
	p := task("P", "2025-09-01", "2025-09-10")
	s1 := task("S1", "2025-09-09", "2025-09-12", "P")
	s2 := task("S2", "2025-09-12", "2025-09-14", "S1")
	tasks := []*model.Task{p, s1, s2}
	lookup := dependency.Map{}

	for _, opts := range [][]Option{nil, {PreserveDuration()}} {
		adjusted := Apply(tasks, Compute(p, tasks, lookup, opts...))
		settled := []*model.Task{p}
		settled = append(settled, adjusted...)

		if again := Compute(p, settled, lookup, opts...); len(again) != 0 {
			t.Errorf("second run produced %+v", again)
		}
	}
}

func TestApply(t *testing.T) {
	a := task("A", "2025-01-01", "2025-01-03")
	b := task("B", "2025-01-01", "2025-01-03")
	got := Apply([]*model.Task{a, b}, []Adjustment{
		{TaskID: "B", NewStartDate: "2025-01-05"},
		{TaskID: "missing", NewStartDate: "2025-01-05"},
		{TaskID: "A", NewStartDate: "2025-01-02", NewEndDate: "2025-01-04"},
		{TaskID: "B", NewStartDate: "2025-01-07"},
	})
	if len(got) != 2 || got[0].ID != "B" || got[1].ID != "A" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].StartDate != "2025-01-07" || got[0].EndDate != "2025-01-03" {
		t.Errorf("B = %+v", got[0])
	}
	if got[1].StartDate != "2025-01-02" || got[1].EndDate != "2025-01-04" {
		t.Errorf("A = %+v", got[1])
	}
	if b.StartDate != "2025-01-01" {
		t.Error("Apply mutated input")
	}
}
