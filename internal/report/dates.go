package report

import (
	"strings"
	"time"
	"unicode"
)

var monthTokens = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ParseReportDate turns a free-form date string into a calendar date.
// It accepts ISO-like forms ("2026-01-15", RFC 3339) and month-name forms
// ("January 15, 2026", "Jan 15, 2026"): a month token plus a 1-2 digit day
// and a 4-digit year anywhere in the string. Returns nil when no date can
// be resolved.
func ParseReportDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "01/02/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	var month time.Month
	day, year := 0, 0
	for _, tok := range tokenize(s) {
		if m, ok := monthTokens[strings.ToLower(tok)]; ok && month == 0 {
			month = m
			continue
		}
		if n, ok := atoiStrict(tok); ok {
			switch {
			case len(tok) == 4 && year == 0:
				year = n
			case len(tok) <= 2 && day == 0 && n >= 1 && n <= 31:
				day = n
			}
		}
	}
	if month == 0 || day == 0 || year == 0 {
		return nil
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// Recent reports whether date is within maxAgeDays of now, at calendar-day
// granularity. A report dated exactly maxAgeDays ago is still recent; a nil
// date never is.
func Recent(date *time.Time, now time.Time, maxAgeDays int) bool {
	if date == nil {
		return false
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -maxAgeDays)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(cutoff)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func atoiStrict(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
