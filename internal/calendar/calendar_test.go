package calendar

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	got, err := Parse("2024-01-10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "2024-1-10", "2024-01-10T00:00:00Z", "10/01/2024", "2024-02-30"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
		if Valid(bad) {
			t.Errorf("Valid(%q) = true", bad)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		want int
	}{
		{"2024-01-10", "2024-01-10", 0},
		{"2024-01-10", "2024-01-11", 1},
		{"2024-01-11", "2024-01-10", -1},
		{"2024-02-28", "2024-03-01", 2}, // leap year
		{"2023-02-28", "2023-03-01", 1},
		{"2024-03-09", "2024-03-11", 2}, // US DST start
		{"2024-10-26", "2024-10-28", 2}, // EU DST end
		{"2023-12-31", "2024-12-31", 366},
	} {
		got, err := DaysBetweenISO(tc.a, tc.b)
		if err != nil {
			t.Fatalf("DaysBetweenISO(%s, %s): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("DaysBetweenISO(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := time.Date(2024, time.March, 9, 23, 30, 0, 0, ny)
	b := time.Date(2024, time.March, 10, 0, 15, 0, 0, ny)
	if got := DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween across DST = %d, want 1", got)
	}
}

func TestAddDays(t *testing.T) {
	for _, tc := range []struct {
		in   string
		n    int
		want string
	}{
		{"2024-01-10", 1, "2024-01-11"},
		{"2024-01-31", 1, "2024-02-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2024-03-10", 0, "2024-03-10"},
	} {
		got, err := AddDays(tc.in, tc.n)
		if err != nil {
			t.Fatalf("AddDays(%s, %d): %v", tc.in, tc.n, err)
		}
		if got != tc.want {
			t.Errorf("AddDays(%s, %d) = %s, want %s", tc.in, tc.n, got, tc.want)
		}
	}

	if _, err := AddDays("nope", 1); err == nil {
		t.Error("AddDays with malformed date expected error")
	}
}

func TestOffset(t *testing.T) {
	got, err := Offset("2024-01-01", "2024-01-04", 60)
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if got != 180 {
		t.Errorf("Offset = %d, want 180", got)
	}

	got, _ = Offset("2024-01-01", "2024-01-04", 12.5)
	if got != 38 { // 37.5 rounds half away from zero
		t.Errorf("Offset with fractional scale = %d, want 38", got)
	}

	got, _ = Offset("2024-01-04", "2024-01-01", 10)
	if got != -30 {
		t.Errorf("Offset before origin = %d, want -30", got)
	}
}

func TestCompare(t *testing.T) {
	if Compare("2024-01-09", "2024-01-10") != -1 {
		t.Error("expected -1")
	}
	if Compare("2024-01-10", "2024-01-10") != 0 {
		t.Error("expected 0")
	}
	if Compare("2024-02-01", "2024-01-31") != 1 {
		t.Error("expected 1")
	}
}

func TestClamp(t *testing.T) {
	for _, tc := range []struct{ v, lo, hi, want int }{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	} {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}
