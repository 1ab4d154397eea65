package hatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hatchwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	// WHAT: A minimal file gets every default applied.
	path := writeConfig(t, "oracle:\n  base_url: http://o\n  api_key: k\n  model: m\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.ReportTTL != 72*time.Hour || cfg.RecommendationTTL != 12*time.Hour {
		t.Errorf("ttls: %v / %v", cfg.ReportTTL, cfg.RecommendationTTL)
	}
	if cfg.MaxReportAgeDays != 14 {
		t.Errorf("max report age: %d", cfg.MaxReportAgeDays)
	}
}

func TestLoadConfig_ScrapeTuning(t *testing.T) {
	// WHAT: Scoring weights and listing thresholds are tunable from YAML and
	// flow through to the scraper config.
	path := writeConfig(t, `
oracle:
  base_url: http://o
  api_key: k
  model: m
scrape:
  min_candidate_score: 8
  min_listing_links: 5
  score_weights:
    fishing_report: 20
    conditions_report: 15
    river_report: 10
    year_token: 10
    date_like: 8
    conditions_alone: 5
    fly_tying: -20
    gear_shop: -10
    pattern_no_report: -5
    report_path: 5
    gear_path: -10
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sc := cfg.Scrape.toInternal()
	if sc.MinCandidateScore != 8 || sc.MinListingLinks != 5 {
		t.Errorf("thresholds: %d / %d", sc.MinCandidateScore, sc.MinListingLinks)
	}
	if sc.Weights.FishingReport != 20 || sc.Weights.FlyTying != -20 {
		t.Errorf("weights: %+v", sc.Weights)
	}
}

func TestValidate_MissingOracle(t *testing.T) {
	// WHAT: Validation fails fast when oracle settings are absent.
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without oracle config")
	}
}
