package report

import (
	"testing"
	"time"
)

func TestParseReportDate(t *testing.T) {
	// WHAT: ISO and month-name date forms all resolve to the same calendar day.
	cases := []struct {
		in          string
		year        int
		month       time.Month
		day         int
	}{
		{"2026-01-15", 2026, time.January, 15},
		{"2026-01-15T08:30:00Z", 2026, time.January, 15},
		{"January 15, 2026", 2026, time.January, 15},
		{"Jan 15, 2026", 2026, time.January, 15},
		{"Posted on March 3rd, 2026 by staff", 2026, time.March, 3},
		{"Updated 8/28/2026", 2026, time.August, 28},
		{"Sept 5 2026", 2026, time.September, 5},
	}
	for _, c := range cases {
		got := ParseReportDate(c.in)
		if got == nil {
			t.Errorf("%q: got nil", c.in)
			continue
		}
		if got.Year() != c.year || got.Month() != c.month || got.Day() != c.day {
			t.Errorf("%q: got %v", c.in, got)
		}
	}
}

func TestParseReportDate_Unparseable(t *testing.T) {
	// WHAT: Non-dates yield nil, never a zero time.
	for _, in := range []string{"", "no date here", "spring fishing", "January sometime", "15th of nothing"} {
		if got := ParseReportDate(in); got != nil {
			t.Errorf("%q: got %v, want nil", in, got)
		}
	}
}

func TestRecent(t *testing.T) {
	// WHAT: The staleness boundary is inclusive: exactly maxAgeDays ago is
	// still recent, one day further is not. Nil dates are never recent.
	now := time.Date(2026, time.August, 29, 14, 30, 0, 0, time.UTC)
	day := func(daysAgo int) *time.Time {
		d := now.AddDate(0, 0, -daysAgo)
		d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	if !Recent(day(0), now, 14) {
		t.Error("today should be recent")
	}
	if !Recent(day(14), now, 14) {
		t.Error("14 days ago should still be recent")
	}
	if Recent(day(15), now, 14) {
		t.Error("15 days ago should be stale")
	}
	if Recent(nil, now, 14) {
		t.Error("nil date should never be recent")
	}
}
