// CLAUDE:SUMMARY Turns raw scraped shop-page text into a dated StructuredReport via the oracle.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverbind/hatchwatch/oracle"
)

// ErrNoUsableReport means the text carried no dated, current fishing report:
// evergreen seasonal advice, a missing or unparseable date, or a date past
// the staleness window. Callers treat it like a fetch failure for the source.
var ErrNoUsableReport = errors.New("no usable fishing report in content")

// DefaultMaxReportAgeDays is the staleness window. A report dated exactly
// this many days ago is still usable.
const DefaultMaxReportAgeDays = 14

// StructuredReport is the parsed, validated representation of a single
// source's fishing-conditions narrative.
type StructuredReport struct {
	SourceName    string            `json:"source_name"`
	SourceURL     string            `json:"source_url"`
	ReportDate    *time.Time        `json:"report_date"`
	Flies         []string          `json:"flies"`
	Conditions    map[string]string `json:"conditions"`
	Effectiveness string            `json:"effectiveness"`
}

// Extractor runs the oracle over raw page text and enforces the date and
// staleness rules independent of whatever the oracle claims.
type Extractor struct {
	oracle     oracle.Completer
	logger     *slog.Logger
	maxAgeDays int
	now        func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxReportAge overrides the staleness window in days.
func WithMaxReportAge(days int) ExtractorOption {
	return func(e *Extractor) { e.maxAgeDays = days }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

func NewExtractor(compl oracle.Completer, logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		oracle:     compl,
		logger:     logger,
		maxAgeDays: DefaultMaxReportAgeDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type extractReply struct {
	IsCurrent     bool              `json:"is_current"`
	ReportDate    string            `json:"report_date"`
	Flies         []string          `json:"flies"`
	Conditions    map[string]string `json:"conditions"`
	Effectiveness string            `json:"effectiveness"`
}

// Extract parses one source's raw text into a StructuredReport.
// Returns ErrNoUsableReport when the content is undated, flagged as
// non-current, or older than the staleness window.
func (e *Extractor) Extract(ctx context.Context, rawText, waterName, sourceName, sourceURL string) (*StructuredReport, error) {
	reply, err := e.oracle.Complete(ctx, extractPrompt(rawText, waterName, e.now()))
	if err != nil {
		return nil, fmt.Errorf("extract report for %s: %w", waterName, err)
	}
	var parsed extractReply
	if err := oracle.ExtractJSON(reply, &parsed); err != nil {
		e.logger.Warn("unparseable extraction reply", "water", waterName, "source", sourceName, "error", err)
		return nil, ErrNoUsableReport
	}
	if !parsed.IsCurrent {
		return nil, ErrNoUsableReport
	}
	date := ParseReportDate(parsed.ReportDate)
	if date == nil {
		e.logger.Debug("report has no parseable date", "water", waterName, "raw_date", parsed.ReportDate)
		return nil, ErrNoUsableReport
	}
	if !Recent(date, e.now(), e.maxAgeDays) {
		e.logger.Debug("report too old", "water", waterName, "report_date", date.Format("2006-01-02"))
		return nil, ErrNoUsableReport
	}
	return &StructuredReport{
		SourceName:    sourceName,
		SourceURL:     sourceURL,
		ReportDate:    date,
		Flies:         parsed.Flies,
		Conditions:    parsed.Conditions,
		Effectiveness: parsed.Effectiveness,
	}, nil
}

func extractPrompt(rawText, waterName string, now time.Time) string {
	return fmt.Sprintf(`You are reading text scraped from a fly shop website. Today is %s.
Extract the current fishing report for %s, if one exists.

Rules:
- The report must carry an explicit date. Generic seasonal advice ("spring is a great time for...") without a date is NOT a report.
- If the text is not a dated, current fishing report, set is_current to false.
- List the specific fly patterns the report recommends, by name.
- Capture conditions as short key/value pairs (flow, clarity, water_temp, weather, hatches).

Reply with JSON only:
{"is_current": bool, "report_date": "date string from the text", "flies": ["pattern name", ...], "conditions": {"key": "value"}, "effectiveness": "1-2 sentence summary of what is working"}

Text:
%s`, now.Format("January 2, 2006"), waterName, rawText)
}
