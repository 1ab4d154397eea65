// CLAUDE:SUMMARY Cache-fronted fly recommendation generation: check cache, ask oracle, write back.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/oracle"
)

// DefaultTTL is how long a generated recommendation set stays servable.
const DefaultTTL = 12 * time.Hour

// Generator produces per-water fly recommendations through the cache:
// callers get the cached set for (water, today) unless it is absent,
// expired, or a forced refresh; fresh results are always written back.
type Generator struct {
	store  *store.Store
	oracle oracle.Completer
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(g *Generator) { g.ttl = ttl }
}

// WithClock overrides the time source. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(st *store.Store, compl oracle.Completer, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		store:  st,
		oracle: compl,
		logger: logger,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cached returns today's recommendation set for the water when a live cache
// row exists, nil on a miss. It never generates.
func (g *Generator) Cached(ctx context.Context, waterID string) (*store.RecommendationSet, error) {
	now := g.now()
	set, err := g.store.GetRecommendations(ctx, waterID, now.Format("2006-01-02"), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("recommendation cache read: %w", err)
	}
	return set, nil
}

type recommendReply struct {
	Recommendations []struct {
		Name       string `json:"name"`
		FlyType    string `json:"fly_type"`
		Confidence int    `json:"confidence"`
		Reasoning  string `json:"reasoning"`
		SizeRange  string `json:"size_range"`
		Technique  string `json:"technique"`
	} `json:"recommendations"`
	ConditionsSummary string `json:"conditions_summary"`
}

// ForWater returns today's recommendation set for the water. The cache is
// checked first unless forceRefresh; a fresh generation is always stored,
// forced or not. rep, when non-nil, grounds the prompt in the current
// aggregated fishing report.
func (g *Generator) ForWater(ctx context.Context, water *store.WaterBody, rep *store.FishingReport, forceRefresh bool) (*store.RecommendationSet, error) {
	now := g.now()
	date := now.Format("2006-01-02")
	log := g.logger.With("water", water.Name, "date", date)

	if !forceRefresh {
		cached, err := g.store.GetRecommendations(ctx, water.ID, date, now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("recommendation cache read: %w", err)
		}
		if cached != nil {
			log.Debug("recommendation cache hit")
			return cached, nil
		}
	}

	reply, err := g.oracle.Complete(ctx, recommendPrompt(water, rep, now))
	if err != nil {
		return nil, fmt.Errorf("generate recommendations for %s: %w", water.Name, err)
	}
	var parsed recommendReply
	if err := oracle.ExtractJSON(reply, &parsed); err != nil {
		return nil, fmt.Errorf("parse recommendations for %s: %w", water.Name, err)
	}

	recs := make([]store.FlyRecommendation, 0, len(parsed.Recommendations))
	for _, r := range parsed.Recommendations {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		recs = append(recs, store.FlyRecommendation{
			Name:       strings.TrimSpace(r.Name),
			FlyType:    store.NormalizeFlyType(strings.ToLower(strings.TrimSpace(r.FlyType))),
			Confidence: clampConfidence(r.Confidence),
			Reasoning:  r.Reasoning,
			SizeRange:  r.SizeRange,
			Technique:  r.Technique,
		})
	}

	set := &store.RecommendationSet{
		WaterBodyID:       water.ID,
		Date:              date,
		Recommendations:   recs,
		ConditionsSummary: parsed.ConditionsSummary,
		Report:            rep,
		CreatedAt:         now.UnixMilli(),
		ExpiresAt:         now.Add(g.ttl).UnixMilli(),
	}
	if err := g.store.PutRecommendations(ctx, set); err != nil {
		return nil, fmt.Errorf("recommendation cache write: %w", err)
	}
	log.Info("generated recommendations", "count", len(recs), "forced", forceRefresh)
	return set, nil
}

func clampConfidence(c int) int {
	if c < 1 {
		return 1
	}
	if c > 100 {
		return 100
	}
	return c
}

func recommendPrompt(water *store.WaterBody, rep *store.FishingReport, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert fly fishing guide. Today is %s.
Recommend flies for %s`, now.Format("January 2, 2006"), water.Name)
	if water.State != "" {
		fmt.Fprintf(&b, " (%s, %s)", water.WaterType, water.State)
	}
	if len(water.Species) > 0 {
		fmt.Fprintf(&b, ", target species: %s", strings.Join(water.Species, ", "))
	}
	b.WriteString(".\n")
	if rep != nil {
		fmt.Fprintf(&b, "\nCurrent fishing report from %s:\n", rep.SourceName)
		if len(rep.Flies) > 0 {
			fmt.Fprintf(&b, "Working flies: %s\n", strings.Join(rep.Flies, ", "))
		}
		for k, v := range rep.Conditions {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
		if rep.Effectiveness != "" {
			fmt.Fprintf(&b, "Notes: %s\n", rep.Effectiveness)
		}
	}
	b.WriteString(`
Reply with JSON only:
{"recommendations": [{"name": "pattern name", "fly_type": "dry|nymph|streamer|wet|emerger", "confidence": 1-100, "reasoning": "why this fly now", "size_range": "16-20", "technique": "how to fish it"}], "conditions_summary": "1-2 sentences on conditions"}
Give 4-6 recommendations, ordered by confidence.`)
	return b.String()
}
