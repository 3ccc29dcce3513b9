// Package calendar implements whole-day date arithmetic on ISO calendar
// dates (YYYY-MM-DD). Dates carry no time-of-day and no zone; they are
// handled as UTC midnight so that day counts never drift across DST changes.
package calendar

import (
	"fmt"
	"math"
	"time"
)

// Layout is the wire format for all dates.
const Layout = "2006-01-02"

const day = 24 * time.Hour

// Parse parses an ISO date. Anything after the date part (for example a
// timestamp suffix "T00:00:00Z") is rejected.
func Parse(iso string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, iso, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", iso, err)
	}
	return t, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(iso string) time.Time {
	t, err := Parse(iso)
	if err != nil {
		panic(err)
	}
	return t
}

// Valid reports whether iso is a well-formed date.
func Valid(iso string) bool {
	_, err := Parse(iso)
	return err == nil
}

// Format renders t as an ISO date using its calendar day in t's location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Midnight truncates t to the start of its calendar day, expressed in UTC.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// It is positive when b is after a, zero for the same day.
func DaysBetween(a, b time.Time) int {
	diff := Midnight(b).Sub(Midnight(a))
	return int(math.Round(float64(diff) / float64(day)))
}

// DaysBetweenISO is DaysBetween for ISO date strings.
func DaysBetweenISO(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return DaysBetween(ta, tb), nil
}

// AddDays returns the ISO date n calendar days after iso (before, if n < 0).
func AddDays(iso string, n int) (string, error) {
	t, err := Parse(iso)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// Offset returns the horizontal pixel offset of date relative to origin:
// the day count scaled by pixelsPerDay and rounded to the nearest pixel.
func Offset(origin, date string, pixelsPerDay float64) (int, error) {
	days, err := DaysBetweenISO(origin, date)
	if err != nil {
		return 0, err
	}
	return OffsetDays(days, pixelsPerDay), nil
}

// OffsetDays scales a day count to pixels.
func OffsetDays(days int, pixelsPerDay float64) int {
	return int(math.Round(float64(days) * pixelsPerDay))
}

// Compare orders two ISO dates. Well-formed ISO dates sort lexically, so no
// parsing is needed; the result follows strings.Compare.
func Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Clamp limits v to the closed range [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
