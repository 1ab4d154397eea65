// CLAUDE:SUMMARY Main Service orchestrator: report pipeline, recommendation path, trip aggregation, janitor.
// Package hatch turns fly-shop fishing reports into per-water and per-trip
// fly recommendations. The pipeline is scrape -> extract -> aggregate ->
// recommend, with a source registry tracking which shop sites are worth
// scraping and TTL caches in front of every oracle call.
package hatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/riverbind/hatchwatch/internal/fetch"
	"github.com/riverbind/hatchwatch/internal/recommend"
	"github.com/riverbind/hatchwatch/internal/report"
	"github.com/riverbind/hatchwatch/internal/scrape"
	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/internal/trip"
	"github.com/riverbind/hatchwatch/oracle"
)

// Service is the main hatchwatch orchestrator.
type Service struct {
	store        *store.Store
	fetcher      *fetch.Fetcher
	scraper      *scrape.Scraper
	extractor    *report.Extractor
	aggregator   *report.Aggregator
	generator    *recommend.Generator
	trips        *trip.Aggregator
	oracle       oracle.Completer
	logger       *slog.Logger
	config       *Config
	newID        func() string
	now          func() time.Time
	urlValidator func(string) error
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithClock overrides the time source. Tests use this to pin cache expiry
// and staleness windows.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation for discovered sources and waters.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// WithOracle overrides the oracle client built from config.
func WithOracle(c oracle.Completer) ServiceOption {
	return func(s *Service) { s.oracle = c }
}

// WithURLValidator overrides URL validation (default: fetch.ValidateURL).
// Use in tests with httptest servers that listen on loopback addresses.
func WithURLValidator(fn func(string) error) ServiceOption {
	return func(s *Service) { s.urlValidator = fn }
}

// New creates a hatchwatch Service on an opened database.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		store:  store.NewStore(db),
		logger: logger,
		config: cfg,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	fetchCfg := cfg.Fetch.toInternal()
	fetchCfg.URLValidator = svc.urlValidator // nil keeps the default
	svc.fetcher = fetch.New(fetchCfg)
	svc.scraper = scrape.New(svc.fetcher, cfg.Scrape.toInternal(), logger)

	if svc.oracle == nil {
		svc.oracle = oracle.NewClient(oracle.Config{
			BaseURL:   cfg.Oracle.BaseURL,
			APIKey:    cfg.Oracle.APIKey,
			Model:     cfg.Oracle.Model,
			Timeout:   cfg.Oracle.Timeout,
			MaxTokens: cfg.Oracle.MaxTokens,
		}, logger)
	}

	svc.extractor = report.NewExtractor(svc.oracle, logger,
		report.WithMaxReportAge(cfg.MaxReportAgeDays),
		report.WithClock(func() time.Time { return svc.now() }))
	svc.aggregator = report.NewAggregator(svc.oracle, logger)
	svc.generator = recommend.New(svc.store, svc.oracle, logger,
		recommend.WithTTL(cfg.RecommendationTTL),
		recommend.WithClock(func() time.Time { return svc.now() }))
	svc.trips = trip.NewAggregator(svc.tripRecommend, logger)

	return svc, nil
}

// Start runs the expired-row janitor until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

func (s *Service) sweepExpired(ctx context.Context) {
	now := s.now().UnixMilli()
	reports, err := s.store.DeleteExpiredReports(ctx, now)
	if err != nil {
		s.logger.Warn("expired report sweep failed", "error", err)
	}
	recs, err := s.store.DeleteExpiredRecommendations(ctx, now)
	if err != nil {
		s.logger.Warn("expired recommendation sweep failed", "error", err)
	}
	if reports > 0 || recs > 0 {
		s.logger.Info("swept expired cache rows", "reports", reports, "recommendations", recs)
	}
}

// ReportResult is what a report request returns: the aggregated report plus
// cache provenance.
type ReportResult struct {
	Report       *store.FishingReport `json:"report"`
	FromCache    bool                 `json:"from_cache"`
	SourcesCount int                  `json:"sources_count,omitempty"`
	CacheExpires string               `json:"cache_expires,omitempty"`
}

// WaterReport returns the current aggregated fishing report for a water,
// scraping its covering sources on a cache miss or forced refresh.
// Returns ErrNoSources when nothing covers the water and ErrNoReport when
// sources exist but none yielded a dated, current report.
func (s *Service) WaterReport(ctx context.Context, waterID, waterName string, forceRefresh bool) (*ReportResult, error) {
	water, err := s.resolveWater(ctx, waterID, waterName)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("water", water.Name)
	now := s.now()

	if !forceRefresh {
		cached, err := s.store.GetCurrentFishingReport(ctx, water.ID, now.UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("report cache read: %w", err)
		}
		if cached != nil {
			return &ReportResult{
				Report:       cached,
				FromCache:    true,
				CacheExpires: time.UnixMilli(cached.ExpiresAt).UTC().Format(time.RFC3339),
			}, nil
		}
	}

	sources, err := s.coveringSources(ctx, water)
	if err != nil {
		return nil, err
	}

	var structured []*report.StructuredReport
	for _, src := range sources {
		r, err := s.reportFromSource(ctx, src, water.Name)
		if err != nil {
			log.Info("source yielded no report", "source", src.Name, "error", err)
			continue
		}
		structured = append(structured, r)
	}
	if len(structured) == 0 {
		return nil, ErrNoReport
	}

	agg := s.aggregator.Aggregate(ctx, structured, water.Name)
	rep := &store.FishingReport{
		WaterBodyID:   water.ID,
		ReportDate:    now.Format("2006-01-02"),
		SourceName:    agg.SourceName,
		Sources:       agg.Sources,
		Flies:         agg.Flies,
		Conditions:    agg.Conditions,
		Effectiveness: agg.Effectiveness,
		CreatedAt:     now.UnixMilli(),
		ExpiresAt:     now.Add(s.config.ReportTTL).UnixMilli(),
	}
	if err := s.store.UpsertFishingReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("store aggregated report: %w", err)
	}
	log.Info("aggregated fishing report", "sources", len(structured), "flies", len(rep.Flies))
	return &ReportResult{
		Report:       rep,
		FromCache:    false,
		SourcesCount: len(structured),
		CacheExpires: time.UnixMilli(rep.ExpiresAt).UTC().Format(time.RFC3339),
	}, nil
}

// reportFromSource runs fetch -> extract for one shop. Fetch trouble counts
// against the source's failure counter; a clean fetch resets it even when
// the page carries no usable report.
func (s *Service) reportFromSource(ctx context.Context, src *store.ShopSource, waterName string) (*report.StructuredReport, error) {
	now := s.now().UnixMilli()
	raw, err := s.scraper.FetchReport(ctx, src.Name, src.ReportsURL, waterName)
	if err != nil {
		if rerr := s.store.RecordFailure(ctx, src.ID, now); rerr != nil {
			s.logger.Warn("record failure", "source", src.Name, "error", rerr)
		}
		return nil, err
	}
	if rerr := s.store.RecordSuccess(ctx, src.ID, now); rerr != nil {
		s.logger.Warn("record success", "source", src.Name, "error", rerr)
	}
	return s.extractor.Extract(ctx, raw.Text, waterName, src.Name, raw.URL)
}

// coveringSources returns the active sources for a water, attempting
// discovery when the registry has none.
func (s *Service) coveringSources(ctx context.Context, water *store.WaterBody) ([]*store.ShopSource, error) {
	sources, err := s.store.FindSourcesCovering(ctx, water.Name)
	if err != nil {
		return nil, fmt.Errorf("find sources: %w", err)
	}
	if len(sources) > 0 {
		return sources, nil
	}
	discovered, err := s.DiscoverSource(ctx, water)
	if err != nil {
		s.logger.Info("source discovery failed", "water", water.Name, "error", err)
		return nil, ErrNoSources
	}
	return []*store.ShopSource{discovered}, nil
}

// Recommendations returns today's fly recommendations for a water through
// the 12h cache. The current fishing report, when one can be had, grounds
// the generation prompt and rides along in the result.
func (s *Service) Recommendations(ctx context.Context, waterID string, forceRefresh bool) (*store.RecommendationSet, error) {
	water, err := s.resolveWater(ctx, waterID, "")
	if err != nil {
		return nil, err
	}

	// Cache first: a live entry must not cost a scrape or an oracle call.
	if !forceRefresh {
		cached, err := s.generator.Cached(ctx, water.ID)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			return cached, nil
		}
	}

	var rep *store.FishingReport
	if res, err := s.WaterReport(ctx, water.ID, "", false); err == nil {
		rep = res.Report
	} else if !errors.Is(err, ErrNoSources) && !errors.Is(err, ErrNoReport) {
		s.logger.Warn("report lookup failed, recommending without it", "water", water.Name, "error", err)
	}

	return s.generator.ForWater(ctx, water, rep, forceRefresh)
}

// TripRecommendations merges recommendations across every water of a trip,
// sequentially, invoking progress after each water completes.
func (s *Service) TripRecommendations(ctx context.Context, waters []trip.Water, progress func(trip.Progress)) ([]trip.Recommendation, error) {
	return s.trips.Aggregate(ctx, waters, progress)
}

// tripRecommend is the per-water path the trip aggregator runs: resolve by
// id or name, then the normal cache-or-generate flow.
func (s *Service) tripRecommend(ctx context.Context, w trip.Water) ([]store.FlyRecommendation, error) {
	water, err := s.resolveWater(ctx, w.ID, w.Name)
	if err != nil {
		return nil, err
	}
	set, err := s.Recommendations(ctx, water.ID, false)
	if err != nil {
		return nil, err
	}
	return set.Recommendations, nil
}

func (s *Service) resolveWater(ctx context.Context, id, name string) (*store.WaterBody, error) {
	if id != "" {
		w, err := s.store.GetWater(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get water %s: %w", id, err)
		}
		if w != nil {
			return w, nil
		}
	}
	if name != "" {
		w, err := s.store.GetWaterByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get water %q: %w", name, err)
		}
		if w != nil {
			return w, nil
		}
	}
	return nil, ErrWaterNotFound
}

// CreateWater registers a water body. A missing id is generated.
func (s *Service) CreateWater(ctx context.Context, w *store.WaterBody) (*store.WaterBody, error) {
	if w.Name == "" {
		return nil, fmt.Errorf("water body name is required")
	}
	if w.ID == "" {
		w.ID = s.newID()
	}
	if err := s.store.InsertWater(ctx, w, s.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("insert water: %w", err)
	}
	return w, nil
}

// GetWater returns one water body or ErrWaterNotFound.
func (s *Service) GetWater(ctx context.Context, id string) (*store.WaterBody, error) {
	return s.resolveWater(ctx, id, "")
}

// ListWaters returns all registered water bodies.
func (s *Service) ListWaters(ctx context.Context) ([]*store.WaterBody, error) {
	return s.store.ListWaters(ctx)
}

// AddSource registers a shop source. A missing id is generated and the
// source starts active with a clean failure counter.
func (s *Service) AddSource(ctx context.Context, src *store.ShopSource) (*store.ShopSource, error) {
	if src.Name == "" || src.ReportsURL == "" {
		return nil, fmt.Errorf("source name and reports_url are required")
	}
	if src.ID == "" {
		src.ID = s.newID()
	}
	src.Active = true
	src.ConsecutiveFailures = 0
	if err := s.store.InsertSource(ctx, src, s.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("insert source: %w", err)
	}
	return src, nil
}

// ListSources returns every registered source, suspended ones included.
func (s *Service) ListSources(ctx context.Context) ([]*store.ShopSource, error) {
	return s.store.ListSources(ctx)
}

// ResetSource clears a source's failure counter and reactivates it.
func (s *Service) ResetSource(ctx context.Context, id string) error {
	return s.store.RecordSuccess(ctx, id, s.now().UnixMilli())
}

// RemoveSource deletes a source from the registry.
func (s *Service) RemoveSource(ctx context.Context, id string) error {
	return s.store.DeleteSource(ctx, id)
}
