package dependency

import (
	"testing"

	"github.com/krushilnaik/constructum-mk2/internal/model"
)

func task(id, start, end string, dependsOn ...string) *model.Task {
	return &model.Task{ID: id, StartDate: start, EndDate: end, DependsOn: dependsOn, Type: model.TaskTypeTask}
}

func TestMap_DefaultsToFS(t *testing.T) {
	m := NewMap([]*model.Dependency{
		{PredecessorID: "a", SuccessorID: "b", Type: model.StartToStart},
		{PredecessorID: "b", SuccessorID: "c", Type: "bogus"},
		nil,
	})
	if got := m.Type("a", "b"); got != model.StartToStart {
		t.Errorf("Type(a,b) = %s, want SS", got)
	}
	if got := m.Type("b", "a"); got != model.FinishToStart {
		t.Errorf("reverse pair Type = %s, want FS", got)
	}
	if got := m.Type("b", "c"); got != model.FinishToStart {
		t.Errorf("invalid type should be ignored, got %s", got)
	}
	if got := m.Type("x", "y"); got != model.FinishToStart {
		t.Errorf("unknown pair Type = %s, want FS", got)
	}
}

func TestMap_SetReplacesAndDelete(t *testing.T) {
	m := NewMap([]*model.Dependency{
		{PredecessorID: "a", SuccessorID: "b", Type: model.StartToStart},
		{PredecessorID: "a", SuccessorID: "b", Type: model.FinishToFinish},
	})
	if got := m.Type("a", "b"); got != model.FinishToFinish {
		t.Fatalf("later entry should win, got %s", got)
	}
	m.Set("a", "b", model.StartToFinish)
	if got := m.Type("a", "b"); got != model.StartToFinish {
		t.Errorf("after Set got %s", got)
	}
	m.Delete("a", "b")
	if len(m) != 0 {
		t.Errorf("after Delete len = %d", len(m))
	}
}

func TestAnchors(t *testing.T) {
	for _, tc := range []struct {
		typ        model.ConstraintType
		pred, succ Endpoint
	}{
		{model.FinishToStart, End, Start},
		{model.StartToStart, Start, Start},
		{model.FinishToFinish, End, End},
		{model.StartToFinish, Start, End},
	} {
		p, s := Anchors(tc.typ)
		if p != tc.pred || s != tc.succ {
			t.Errorf("Anchors(%s) = (%s, %s), want (%s, %s)", tc.typ, p, s, tc.pred, tc.succ)
		}
		// Round trip through endpoint inference.
		if got := TypeFromEndpoints(p, s); got != tc.typ {
			t.Errorf("TypeFromEndpoints(%s, %s) = %s, want %s", p, s, got, tc.typ)
		}
	}
	if got := TypeFromEndpoints("", ""); got != model.StartToFinish {
		t.Errorf("unknown endpoints = %s, want SF", got)
	}
}

func TestSatisfied(t *testing.T) {
	p := task("p", "2024-01-01", "2024-01-10")
	for _, tc := range []struct {
		name      string
		typ       model.ConstraintType
		succ      *model.Task
		ok, known bool
	}{
		{"FS after", model.FinishToStart, task("s", "2024-01-11", "2024-01-15"), true, true},
		{"FS same day", model.FinishToStart, task("s", "2024-01-10", "2024-01-15"), false, true},
		{"SS same day", model.StartToStart, task("s", "2024-01-01", "2024-01-02"), true, true},
		{"SS before", model.StartToStart, task("s", "2023-12-31", "2024-01-02"), false, true},
		{"FF same day", model.FinishToFinish, task("s", "2024-01-02", "2024-01-10"), true, true},
		{"FF early", model.FinishToFinish, task("s", "2024-01-02", "2024-01-09"), false, true},
		{"SF ok", model.StartToFinish, task("s", "2023-12-01", "2024-01-01"), true, true},
		{"SF early", model.StartToFinish, task("s", "2023-12-01", "2023-12-31"), false, true},
		{"missing date", model.FinishToStart, task("s", "", "2024-01-15"), false, false},
	} {
		ok, known := Satisfied(tc.typ, p, tc.succ)
		if ok != tc.ok || known != tc.known {
			t.Errorf("%s: Satisfied = (%v, %v), want (%v, %v)", tc.name, ok, known, tc.ok, tc.known)
		}
	}
}

func TestViolations(t *testing.T) {
	tasks := []*model.Task{
		task("a", "2024-01-01", "2024-01-10"),
		task("b", "2024-01-05", "2024-01-12", "a"),       // FS violated
		task("c", "2024-01-02", "2024-01-03", "a"),       // SS satisfied
		task("d", "2024-01-20", "2024-01-25", "a", "zz"), // FS ok, zz unknown
		task("e", "", "", "a"),                           // undated
	}
	m := Map{}
	m.Set("a", "c", model.StartToStart)
	// A recorded type without a DependsOn entry is not an edge.
	m.Set("b", "d", model.FinishToFinish)

	got := Violations(tasks, m)
	if len(got) != 1 {
		t.Fatalf("expected 1 violation, got %d: %+v", len(got), got)
	}
	v := got[0]
	if v.PredecessorID != "a" || v.SuccessorID != "b" || v.Type != model.FinishToStart {
		t.Errorf("unexpected violation %+v", v)
	}
	if v.PredecessorAt != "2024-01-10" || v.SuccessorAt != "2024-01-05" {
		t.Errorf("unexpected anchor dates %+v", v)
	}
}
