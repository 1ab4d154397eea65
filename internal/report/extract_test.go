package report

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeOracle replies with canned strings in order and counts calls.
type fakeOracle struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (f *fakeOracle) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("fakeOracle: out of replies")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

var testNow = func() time.Time {
	return time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)
}

func TestExtract_DatedCurrentReport(t *testing.T) {
	fo := &fakeOracle{replies: []string{`Here you go:
{"is_current": true, "report_date": "August 25, 2026", "flies": ["Zebra Midge", "RS2"], "conditions": {"flow": "120 cfs", "clarity": "clear"}, "effectiveness": "Midges below the dam."}`}}
	e := NewExtractor(fo, nil, WithClock(testNow))

	r, err := e.Extract(context.Background(), "raw page text", "South Platte River", "Trout Town", "https://shop.example/reports")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if r.ReportDate == nil || r.ReportDate.Day() != 25 {
		t.Errorf("report date: %v", r.ReportDate)
	}
	if len(r.Flies) != 2 || r.Flies[0] != "Zebra Midge" {
		t.Errorf("flies: %v", r.Flies)
	}
	if r.Conditions["flow"] != "120 cfs" {
		t.Errorf("conditions: %v", r.Conditions)
	}
	if r.SourceName != "Trout Town" {
		t.Errorf("source name: %q", r.SourceName)
	}
}

func TestExtract_RejectsNonCurrent(t *testing.T) {
	// WHAT: Evergreen advice flagged non-current by the oracle is no report.
	fo := &fakeOracle{replies: []string{`{"is_current": false, "report_date": "", "flies": [], "conditions": {}, "effectiveness": ""}`}}
	e := NewExtractor(fo, nil, WithClock(testNow))
	if _, err := e.Extract(context.Background(), "text", "w", "s", "u"); !errors.Is(err, ErrNoUsableReport) {
		t.Fatalf("err = %v, want ErrNoUsableReport", err)
	}
}

func TestExtract_RejectsDatelessReport(t *testing.T) {
	fo := &fakeOracle{replies: []string{`{"is_current": true, "report_date": "sometime recently", "flies": ["Adams"], "conditions": {}, "effectiveness": "ok"}`}}
	e := NewExtractor(fo, nil, WithClock(testNow))
	if _, err := e.Extract(context.Background(), "text", "w", "s", "u"); !errors.Is(err, ErrNoUsableReport) {
		t.Fatalf("err = %v, want ErrNoUsableReport", err)
	}
}

func TestExtract_StalenessBoundary(t *testing.T) {
	// WHAT: 14 days old passes, 15 days old is rejected, regardless of what
	// the oracle claims about currency.
	for _, c := range []struct {
		date string
		ok   bool
	}{
		{"August 15, 2026", true},  // exactly 14 days before testNow
		{"August 14, 2026", false}, // 15 days
	} {
		fo := &fakeOracle{replies: []string{`{"is_current": true, "report_date": "` + c.date + `", "flies": ["Adams"], "conditions": {}, "effectiveness": "ok"}`}}
		e := NewExtractor(fo, nil, WithClock(testNow))
		_, err := e.Extract(context.Background(), "text", "w", "s", "u")
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.date, err)
		}
		if !c.ok && !errors.Is(err, ErrNoUsableReport) {
			t.Errorf("%s: err = %v, want ErrNoUsableReport", c.date, err)
		}
	}
}

func TestExtract_MalformedReply(t *testing.T) {
	// WHY: Oracle replies are untyped text; garbage must degrade to
	// ErrNoUsableReport, never a panic or a decode error to the caller.
	fo := &fakeOracle{replies: []string{"I could not find a report, sorry."}}
	e := NewExtractor(fo, nil, WithClock(testNow))
	if _, err := e.Extract(context.Background(), "text", "w", "s", "u"); !errors.Is(err, ErrNoUsableReport) {
		t.Fatalf("err = %v, want ErrNoUsableReport", err)
	}
}

func TestExtract_OracleErrorPropagates(t *testing.T) {
	fo := &fakeOracle{err: errors.New("oracle down")}
	e := NewExtractor(fo, nil, WithClock(testNow))
	if _, err := e.Extract(context.Background(), "text", "w", "s", "u"); err == nil || errors.Is(err, ErrNoUsableReport) {
		t.Fatalf("err = %v, want transport error", err)
	}
}
