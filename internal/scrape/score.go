package scrape

import (
	"regexp"
	"sort"
	"strings"
)

// ScoreWeights are the empirically tuned weights for ranking candidate links
// on a shop's blog listing. The values were arrived at by trial against real
// shop sites; they are kept configurable rather than re-derived.
type ScoreWeights struct {
	FishingReport    int `yaml:"fishing_report"`    // link text contains "fishing report"
	ConditionsReport int `yaml:"conditions_report"` // link text contains both "conditions" and "report"
	RiverReport      int `yaml:"river_report"`      // link text contains "river report"
	YearToken        int `yaml:"year_token"`        // link text contains an explicit 4-digit year
	DateLike         int `yaml:"date_like"`         // slash dates or ordinal day numbers in link text
	ConditionsAlone  int `yaml:"conditions_alone"`  // "conditions" without "report"
	FlyTying         int `yaml:"fly_tying"`         // penalty: "fly pattern" / "fly tying"
	GearShop         int `yaml:"gear_shop"`         // penalty: "gear", "equipment", "product", "shop"
	PatternNoReport  int `yaml:"pattern_no_report"` // penalty: "streamer"/"nymph" without "report"
	ReportPath       int `yaml:"report_path"`       // URL path contains "fishing-report" / "river-report"
	GearPath         int `yaml:"gear_path"`         // penalty: URL path contains "/gear/" or "/products/"
}

// DefaultScoreWeights returns the tuned defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		FishingReport:    15,
		ConditionsReport: 15,
		RiverReport:      10,
		YearToken:        10,
		DateLike:         8,
		ConditionsAlone:  5,
		FlyTying:         -15,
		GearShop:         -10,
		PatternNoReport:  -5,
		ReportPath:       5,
		GearPath:         -10,
	}
}

// Candidate is one scored link from a listing page or feed.
type Candidate struct {
	Title    string
	URL      string
	Score    int
	DateHint string // publish date when the listing exposes one (feeds do)
}

var (
	yearRe      = regexp.MustCompile(`\b20\d{2}\b`)
	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(/\d{2,4})?\b`)
	ordinalRe   = regexp.MustCompile(`\b\d{1,2}(st|nd|rd|th)\b`)
)

// Score rates a candidate link by its visible text and URL. Higher is more
// likely to be a current fishing report.
func (w ScoreWeights) Score(text, url string) int {
	t := strings.ToLower(text)
	u := strings.ToLower(url)
	score := 0

	hasReport := strings.Contains(t, "report")
	hasConditions := strings.Contains(t, "conditions")

	if strings.Contains(t, "fishing report") {
		score += w.FishingReport
	}
	switch {
	case hasConditions && hasReport:
		score += w.ConditionsReport
	case hasConditions:
		score += w.ConditionsAlone
	}
	if strings.Contains(t, "river report") {
		score += w.RiverReport
	}
	if yearRe.MatchString(t) {
		score += w.YearToken
	}
	if slashDateRe.MatchString(t) || ordinalRe.MatchString(t) {
		score += w.DateLike
	}
	if strings.Contains(t, "fly pattern") || strings.Contains(t, "fly tying") {
		score += w.FlyTying
	}
	if strings.Contains(t, "gear") || strings.Contains(t, "equipment") ||
		strings.Contains(t, "product") || strings.Contains(t, "shop") {
		score += w.GearShop
	}
	if (strings.Contains(t, "streamer") || strings.Contains(t, "nymph")) && !hasReport {
		score += w.PatternNoReport
	}

	if strings.Contains(u, "fishing-report") || strings.Contains(u, "river-report") {
		score += w.ReportPath
	}
	if strings.Contains(u, "/gear/") || strings.Contains(u, "/products/") {
		score += w.GearPath
	}

	return score
}

// rank sorts candidates by descending score. The sort is stable so equally
// scored links keep their page order.
func rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}
