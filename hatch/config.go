package hatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/riverbind/hatchwatch/internal/fetch"
	"github.com/riverbind/hatchwatch/internal/scrape"
)

// Config is the top-level hatchwatch configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	Oracle OracleConfig `yaml:"oracle"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Scrape ScrapeConfig `yaml:"scrape"`

	// ReportTTL is how long an aggregated fishing report stays servable.
	ReportTTL time.Duration `yaml:"report_ttl"`

	// RecommendationTTL is the recommendation cache window.
	RecommendationTTL time.Duration `yaml:"recommendation_ttl"`

	// MaxReportAgeDays is the staleness window for extracted report dates.
	MaxReportAgeDays int `yaml:"max_report_age_days"`

	// JanitorInterval is how often expired cache rows are purged.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

// OracleConfig configures the text-understanding oracle client.
type OracleConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

// FetchConfig configures shop-page retrieval.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

// ScrapeConfig tunes the link-scoring heuristic. The defaults are the
// empirically tuned values; override only with evidence.
type ScrapeConfig struct {
	MinCandidateScore int `yaml:"min_candidate_score"`
	MaxCandidates     int `yaml:"max_candidates"`
	MinContentChars   int `yaml:"min_content_chars"`
	MaxContentChars   int `yaml:"max_content_chars"`
	MinListingLinks   int `yaml:"min_listing_links"`

	// ScoreWeights overrides the link-scoring weight table. Left entirely
	// zero, the tuned defaults apply; a partial table is taken as-is.
	ScoreWeights scrape.ScoreWeights `yaml:"score_weights"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "data/hatchwatch.db"
	}
	if c.ReportTTL <= 0 {
		c.ReportTTL = 72 * time.Hour
	}
	if c.RecommendationTTL <= 0 {
		c.RecommendationTTL = 12 * time.Hour
	}
	if c.MaxReportAgeDays <= 0 {
		c.MaxReportAgeDays = 14
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = time.Hour
	}
}

// Validate fails fast on configuration the service cannot run without.
func (c *Config) Validate() error {
	if c.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model is required")
	}
	return nil
}

// LoadConfig reads a YAML configuration file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.defaults()
	return &cfg, nil
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

func (c *FetchConfig) toInternal() fetch.Config {
	return fetch.Config{
		Timeout:   c.Timeout,
		MaxBytes:  c.MaxBytes,
		UserAgent: c.UserAgent,
	}
}

func (c *ScrapeConfig) toInternal() scrape.Config {
	return scrape.Config{
		Weights:           c.ScoreWeights,
		MinCandidateScore: c.MinCandidateScore,
		MaxCandidates:     c.MaxCandidates,
		MinContentChars:   c.MinContentChars,
		MaxContentChars:   c.MaxContentChars,
		MinListingLinks:   c.MinListingLinks,
	}
}
