// CLAUDE:SUMMARY Sequential multi-water trip aggregation: merge per-water fly recommendations, rank by breadth.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/riverbind/hatchwatch/internal/store"
)

var (
	// ErrNoWaters means the trip request named no waters at all.
	ErrNoWaters = errors.New("no waters in trip")
	// ErrAllWatersFailed means recommendations could not be obtained for
	// any water in the trip.
	ErrAllWatersFailed = errors.New("could not get recommendations for any waters")
)

// Water identifies one stop on a trip.
type Water struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Progress reports how many waters have completed so far.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Recommendation is one fly merged across every water that recommended it.
type Recommendation struct {
	Name       string   `json:"name"`
	FlyType    string   `json:"fly_type"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	SizeRange  string   `json:"size_range"`
	Technique  string   `json:"technique"`
	ImageURL   string   `json:"image_url,omitempty"`
	Waters     []string `json:"waters"`
}

// RecommendFunc obtains the fly recommendations for one water, via whatever
// cache-or-generate path the caller wires in.
type RecommendFunc func(ctx context.Context, w Water) ([]store.FlyRecommendation, error)

// Aggregator merges per-water recommendations into one ranked trip list.
type Aggregator struct {
	recommend RecommendFunc
	logger    *slog.Logger
}

func NewAggregator(fn RecommendFunc, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{recommend: fn, logger: logger}
}

// merged accumulates one fly's appearances across waters.
type merged struct {
	rec         Recommendation
	confidences []int
	reasonings  []string
}

// Aggregate processes waters strictly in order, invoking progress after each
// water completes (success or failure). A failing water is logged and
// skipped; only all waters failing is an error. Flies are merged by
// case-insensitive name, confidence is the rounded mean, and the result is
// ranked by contributing-water count then confidence, ties keeping first-seen
// order.
func (a *Aggregator) Aggregate(ctx context.Context, waters []Water, progress func(Progress)) ([]Recommendation, error) {
	if len(waters) == 0 {
		return nil, ErrNoWaters
	}

	byName := make(map[string]*merged)
	var order []string
	succeeded := 0

	for i, w := range waters {
		recs, err := a.recommend(ctx, w)
		if err != nil {
			a.logger.Warn("skipping water in trip", "water", w.Name, "error", err)
		} else {
			succeeded++
			for _, r := range recs {
				a.fold(byName, &order, w.Name, r)
			}
		}
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(waters)})
		}
	}
	if succeeded == 0 {
		return nil, ErrAllWatersFailed
	}

	out := make([]Recommendation, 0, len(order))
	for _, key := range order {
		out = append(out, finalize(byName[key]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Waters) != len(out[j].Waters) {
			return len(out[i].Waters) > len(out[j].Waters)
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

func (a *Aggregator) fold(byName map[string]*merged, order *[]string, waterName string, r store.FlyRecommendation) {
	key := strings.ToLower(strings.TrimSpace(r.Name))
	if key == "" {
		return
	}
	m, ok := byName[key]
	if !ok {
		m = &merged{rec: Recommendation{
			Name:      r.Name,
			FlyType:   r.FlyType,
			SizeRange: r.SizeRange,
			Technique: r.Technique,
		}}
		byName[key] = m
		*order = append(*order, key)
	}
	m.confidences = append(m.confidences, r.Confidence)
	m.reasonings = append(m.reasonings, r.Reasoning)
	if m.rec.ImageURL == "" {
		m.rec.ImageURL = r.ImageURL
	}
	if !contains(m.rec.Waters, waterName) {
		m.rec.Waters = append(m.rec.Waters, waterName)
	}
}

func finalize(m *merged) Recommendation {
	rec := m.rec
	sum := 0
	for _, c := range m.confidences {
		sum += c
	}
	rec.Confidence = int(math.Round(float64(sum) / float64(len(m.confidences))))
	rec.Reasoning = synthesizeReasoning(rec.Waters, m.reasonings)
	return rec
}

// synthesizeReasoning prefixes a multi-water fly's first reasoning with the
// waters it covers; a single-water fly keeps its reasoning verbatim.
func synthesizeReasoning(waters, reasonings []string) string {
	first := ""
	for _, r := range reasonings {
		if strings.TrimSpace(r) != "" {
			first = r
			break
		}
	}
	if len(waters) <= 1 {
		return first
	}
	return strings.TrimSpace(fmt.Sprintf("Recommended for %s. %s", joinNames(waters), first))
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
