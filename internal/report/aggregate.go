package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/oracle"
)

// MaxAggregatedFlies caps the deduped fly list in an aggregated report.
const MaxAggregatedFlies = 8

// Aggregated is the combined view of one or more per-shop reports for a
// water body. Persistence fields (cache key, expiry) are the caller's job.
type Aggregated struct {
	SourceName    string
	Sources       []store.SourceRef
	Flies         []string
	Conditions    map[string]string
	Effectiveness string
}

// Aggregator folds per-source StructuredReports into one Aggregated report.
// The oracle is optional: with no oracle, or when it fails, the multi-source
// narrative falls back to joining the per-source narratives.
type Aggregator struct {
	oracle oracle.Completer
	logger *slog.Logger
}

func NewAggregator(compl oracle.Completer, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{oracle: compl, logger: logger}
}

// Aggregate combines reports for waterName. A single report passes through
// unchanged under its shop's display name. Multiple reports dedupe flies
// first-seen, take the first report's conditions verbatim, and summarize the
// narratives. Empty input yields nil.
func (a *Aggregator) Aggregate(ctx context.Context, reports []*StructuredReport, waterName string) *Aggregated {
	if len(reports) == 0 {
		return nil
	}

	sources := make([]store.SourceRef, 0, len(reports))
	for _, r := range reports {
		sources = append(sources, store.SourceRef{Name: r.SourceName, URL: r.SourceURL})
	}

	if len(reports) == 1 {
		r := reports[0]
		return &Aggregated{
			SourceName:    r.SourceName,
			Sources:       sources,
			Flies:         MergeFlies(reports),
			Conditions:    r.Conditions,
			Effectiveness: r.Effectiveness,
		}
	}

	return &Aggregated{
		SourceName:    FormatSourceName(len(reports)),
		Sources:       sources,
		Flies:         MergeFlies(reports),
		Conditions:    reports[0].Conditions,
		Effectiveness: a.summarize(ctx, reports, waterName),
	}
}

// FormatSourceName labels an aggregate by contributing shop count.
func FormatSourceName(count int) string {
	if count <= 1 {
		return "fly shop"
	}
	return fmt.Sprintf("%d fly shops", count)
}

// MergeFlies union-dedupes fly names across reports, case-insensitively,
// preserving first-seen order and spelling, capped at MaxAggregatedFlies.
func MergeFlies(reports []*StructuredReport) []string {
	seen := make(map[string]bool)
	var flies []string
	for _, r := range reports {
		for _, fly := range r.Flies {
			fly = strings.TrimSpace(fly)
			if fly == "" {
				continue
			}
			key := strings.ToLower(fly)
			if seen[key] {
				continue
			}
			seen[key] = true
			flies = append(flies, fly)
			if len(flies) >= MaxAggregatedFlies {
				return flies
			}
		}
	}
	return flies
}

type summaryReply struct {
	Summary string `json:"summary"`
}

// summarize asks the oracle for a 2-3 sentence digest of the per-source
// narratives. Any oracle trouble degrades to the space-joined narratives.
func (a *Aggregator) summarize(ctx context.Context, reports []*StructuredReport, waterName string) string {
	narratives := make([]string, 0, len(reports))
	for _, r := range reports {
		if s := strings.TrimSpace(r.Effectiveness); s != "" {
			narratives = append(narratives, s)
		}
	}
	joined := strings.Join(narratives, " ")
	if a.oracle == nil || joined == "" {
		return joined
	}

	prompt := fmt.Sprintf(`Summarize these fishing report notes for %s from %d fly shops into 2-3 sentences covering what is working right now. Reply with JSON only: {"summary": "..."}

%s`, waterName, len(reports), joined)
	reply, err := a.oracle.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn("summary oracle call failed, joining narratives", "water", waterName, "error", err)
		return joined
	}
	var parsed summaryReply
	if err := oracle.ExtractJSON(reply, &parsed); err != nil || strings.TrimSpace(parsed.Summary) == "" {
		return joined
	}
	return parsed.Summary
}
