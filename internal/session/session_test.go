package session

import (
	"errors"
	"testing"
	"time"

	"github.com/krushilnaik/constructum-mk2/internal/layout"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

func leaf() *model.Task {
	return &model.Task{
		ID: "tsk-a", ProjectID: "prj-1", Type: model.TaskTypeTask,
		StartDate: "2025-01-10", EndDate: "2025-01-14",
	}
}

func begin(t *testing.T, kind Kind) *Session {
	t.Helper()
	s, err := Begin("drag-1", leaf(), kind, 3, 10, layout.DefaultMetrics())
	if err != nil {
		t.Fatalf("Begin(%s): %v", kind, err)
	}
	return s
}

func TestBegin_Rejects(t *testing.T) {
	summary := leaf()
	summary.Type = model.TaskTypeSummary
	if _, err := Begin("d", summary, Move, 0, 1, layout.DefaultMetrics()); !errors.Is(err, ErrNotDraggable) {
		t.Errorf("summary move: got %v, want ErrNotDraggable", err)
	}
	if _, err := Begin("d", summary, Reorder, 0, 1, layout.DefaultMetrics()); err != nil {
		t.Errorf("summary reorder should be allowed, got %v", err)
	}

	undated := leaf()
	undated.EndDate = ""
	if _, err := Begin("d", undated, ResizeEnd, 0, 1, layout.DefaultMetrics()); !errors.Is(err, ErrUndated) {
		t.Errorf("undated resize: got %v, want ErrUndated", err)
	}
	if _, err := Begin("d", leaf(), "spin", 0, 1, layout.DefaultMetrics()); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestPropose(t *testing.T) {
	for _, tc := range []struct {
		name       string
		kind       Kind
		dx, dy     float64
		start, end string
		row        int
		changed    bool
	}{
		{"move right two days", Move, 120, 0, "2025-01-12", "2025-01-16", 3, true},
		{"move left, rounding", Move, -89, 0, "2025-01-09", "2025-01-13", 3, true},
		{"move under half a day", Move, 29, 0, "2025-01-10", "2025-01-14", 3, false},
		{"resize start later", ResizeStart, 120, 0, "2025-01-12", "2025-01-14", 3, true},
		{"resize start clamps to end", ResizeStart, 600, 0, "2025-01-14", "2025-01-14", 3, true},
		{"resize end earlier", ResizeEnd, -60, 0, "2025-01-10", "2025-01-13", 3, true},
		{"resize end clamps to start", ResizeEnd, -6000, 0, "2025-01-10", "2025-01-10", 3, true},
		{"reorder down", Reorder, 500, 80, "2025-01-10", "2025-01-14", 5, true},
		{"reorder clamps", Reorder, 0, -1000, "2025-01-10", "2025-01-14", 0, true},
		{"reorder zero", Reorder, 0, 10, "2025-01-10", "2025-01-14", 3, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := begin(t, tc.kind).Propose(tc.dx, tc.dy)
			if p.StartDate != tc.start || p.EndDate != tc.end {
				t.Errorf("dates = %s..%s, want %s..%s", p.StartDate, p.EndDate, tc.start, tc.end)
			}
			if p.Row != tc.row {
				t.Errorf("row = %d, want %d", p.Row, tc.row)
			}
			if p.Changed != tc.changed {
				t.Errorf("changed = %v, want %v", p.Changed, tc.changed)
			}
		})
	}
}

func TestPropose_ZeroDisplacementIsNoop(t *testing.T) {
	for _, k := range []Kind{Move, ResizeStart, ResizeEnd, Reorder} {
		s := begin(t, k)
		s.Propose(240, 100) // intermediate updates leave no trace
		if p := s.Propose(0, 0); p.Changed {
			t.Errorf("%s: zero displacement changed state: %+v", k, p)
		}
	}
}

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker(nil)
	s := begin(t, Move)

	if p := tr.Open(s); p.Changed {
		t.Fatalf("opening proposal should be unchanged: %+v", p)
	}
	if _, ok := tr.Get("drag-1"); !ok {
		t.Fatal("session not registered")
	}

	p, err := tr.Update("drag-1", 60, 0)
	if err != nil || p.StartDate != "2025-01-11" {
		t.Fatalf("Update = %+v, %v", p, err)
	}
	if list := tr.List(); len(list) != 1 || list[0].Last.StartDate != "2025-01-11" {
		t.Fatalf("List = %+v", list)
	}

	got, final, err := tr.End("drag-1", 180, 0)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if got.ID != "drag-1" || final.StartDate != "2025-01-13" || !final.Changed {
		t.Errorf("End = %+v", final)
	}
	if _, _, err := tr.End("drag-1", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("second End: got %v, want ErrNotFound", err)
	}
	if _, err := tr.Update("drag-1", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update after End: got %v", err)
	}
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker(nil)
	tr.Open(begin(t, ResizeEnd))
	if !tr.Cancel("drag-1") {
		t.Fatal("Cancel reported missing session")
	}
	if tr.Cancel("drag-1") {
		t.Error("second Cancel should report false")
	}
	if len(tr.List()) != 0 {
		t.Error("cancelled session still listed")
	}
}

func TestSweep_CancelsIdleSessions(t *testing.T) {
	tr := NewTracker(nil)
	tr.Open(begin(t, Move))
	fresh, _ := Begin("drag-2", leaf(), Reorder, 0, 4, layout.DefaultMetrics())
	tr.Open(fresh)
	tr.sessions["drag-1"].lastSeen = time.Now().Add(-10 * time.Minute)

	var cancelled []string
	tr.sweep(ReaperConfig{
		IdleTimeout: time.Minute,
		OnCancel:    func(s *Session) { cancelled = append(cancelled, s.ID) },
	}, time.Now())

	if len(cancelled) != 1 || cancelled[0] != "drag-1" {
		t.Fatalf("cancelled = %v", cancelled)
	}
	if _, ok := tr.Get("drag-2"); !ok {
		t.Error("fresh session was reaped")
	}
}

func TestStartReaper_StopsCleanly(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartReaper(&ReaperConfig{
		IdleTimeout:   time.Millisecond,
		SweepInterval: 5 * time.Millisecond,
	})
	tr.Open(begin(t, Move))

	deadline := time.Now().Add(2 * time.Second)
	for len(tr.List()) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	tr.Stop()
	tr.Stop() // idempotent

	if n := len(tr.List()); n != 0 {
		t.Errorf("expected idle session reaped, %d left", n)
	}
}
