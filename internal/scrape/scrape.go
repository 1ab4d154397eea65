// CLAUDE:SUMMARY Report fetcher: listing detection, candidate scoring, top-N fetch, content fallback chain.
// Package scrape turns a fly shop's reports URL into the raw text of its most
// recent fishing report.
//
// Shop sites come in three shapes: a blog listing of dated posts, a single
// rolling report page, and an RSS/Atom feed. The scraper detects which it is
// looking at, scores candidate post links with a weighted heuristic, and
// walks a fallback chain of content selectors until it finds enough text.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/riverbind/hatchwatch/internal/fetch"
)

// ErrNoContent is returned when a source yields no usable report text after
// every fallback. The caller records it as a scrape failure for the source.
var ErrNoContent = errors.New("scrape: no report content found")

// RawReport is the ephemeral output of one successful scrape, consumed
// immediately by the extractor and then discarded.
type RawReport struct {
	SourceName string
	URL        string
	Text       string
	DateHint   string // human-readable date found near the content, if any
}

// Config configures the scraper.
type Config struct {
	Weights ScoreWeights
	// MinCandidateScore is the score a link needs to be attempted. Default: 5.
	MinCandidateScore int
	// MaxCandidates is how many top-scored links to try. Default: 3.
	MaxCandidates int
	// MinContentChars is the acceptance threshold for extracted text. Default: 300.
	MinContentChars int
	// MaxContentChars caps report text sent to the oracle. Default: 5000.
	MaxContentChars int
	// MinListingLinks is how many candidates make a page a listing. Default: 3.
	MinListingLinks int
}

func (c *Config) defaults() {
	if c.Weights == (ScoreWeights{}) {
		c.Weights = DefaultScoreWeights()
	}
	if c.MinCandidateScore == 0 {
		c.MinCandidateScore = 5
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 3
	}
	if c.MinContentChars <= 0 {
		c.MinContentChars = 300
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 5000
	}
	if c.MinListingLinks <= 0 {
		c.MinListingLinks = 3
	}
}

// candidateSelectors is the broad net for harvesting post links from a
// listing page.
var candidateSelectors = []string{
	"article a[href]",
	".post a[href]",
	".blog-post a[href]",
	".entry-title a[href]",
	".post-title a[href]",
	"h2 a[href]",
	"h3 a[href]",
}

// Scraper fetches and extracts fishing reports from shop websites.
type Scraper struct {
	fetcher   *fetch.Fetcher
	config    Config
	logger    *slog.Logger
	feed      *gofeed.Parser
	md        *converter.Converter
	sanitize  *bluemonday.Policy
	stripTags *bluemonday.Policy
}

// New creates a Scraper.
func New(f *fetch.Fetcher, cfg Config, logger *slog.Logger) *Scraper {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		fetcher: f,
		config:  cfg,
		logger:  logger,
		feed:    gofeed.NewParser(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		sanitize:  bluemonday.UGCPolicy(),
		stripTags: bluemonday.StrictPolicy(),
	}
}

// FetchReport retrieves the freshest report text a source offers.
// Fallback order: best-scored post candidates, then the listing page itself,
// then raw page text. Returns ErrNoContent (or the fetch error) when nothing
// qualifies — both count as a failure for the source.
func (s *Scraper) FetchReport(ctx context.Context, sourceName, reportsURL, waterName string) (*RawReport, error) {
	log := s.logger.With("source", sourceName, "url", reportsURL, "water", waterName)

	page, err := s.fetcher.Get(ctx, reportsURL)
	if err != nil {
		log.Warn("scrape: reports page fetch failed", "error", err)
		return nil, fmt.Errorf("fetch reports page: %w", err)
	}

	if fetch.LooksLikeFeed(page) {
		return s.fromFeed(ctx, sourceName, page, log)
	}

	candidates := s.harvestCandidates(page)
	if len(candidates) >= s.config.MinListingLinks {
		if raw := s.tryCandidates(ctx, sourceName, candidates, log); raw != nil {
			return raw, nil
		}
	}

	// Not a listing, or no candidate qualified: extract from the page itself.
	if raw := s.fromPage(sourceName, page.FinalURL, page.Body, ""); raw != nil {
		return raw, nil
	}

	// Last resort: raw page text regardless of the content threshold.
	root := collapseWhitespace(string(s.stripTags.SanitizeBytes(page.Body)))
	if root == "" {
		log.Warn("scrape: empty after all fallbacks")
		return nil, ErrNoContent
	}
	return &RawReport{
		SourceName: sourceName,
		URL:        page.FinalURL,
		Text:       capText(root, s.config.MaxContentChars),
		DateHint:   findDateHint(page.Body),
	}, nil
}

// harvestCandidates collects and scores post links from a listing page.
func (s *Scraper) harvestCandidates(page *fetch.Result) []Candidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	for _, sel := range candidateSelectors {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			abs := baseURL.ResolveReference(ref)
			if abs.Scheme != "http" && abs.Scheme != "https" {
				return
			}
			abs.Fragment = ""
			link := abs.String()
			if seen[link] || link == page.FinalURL {
				return
			}
			seen[link] = true
			text := strings.TrimSpace(a.Text())
			candidates = append(candidates, Candidate{
				Title: text,
				URL:   link,
				Score: s.config.Weights.Score(text, link),
			})
		})
	}
	rank(candidates)
	return candidates
}

// tryCandidates fetches the top-scored candidates in order and returns the
// first that yields enough content. One-shot per candidate, no retries.
func (s *Scraper) tryCandidates(ctx context.Context, sourceName string, candidates []Candidate, log *slog.Logger) *RawReport {
	tried := 0
	for _, c := range candidates {
		if tried >= s.config.MaxCandidates {
			break
		}
		if c.Score < s.config.MinCandidateScore {
			break // ranked descending: nothing below this qualifies either
		}
		tried++

		page, err := s.fetcher.Get(ctx, c.URL)
		if err != nil {
			log.Debug("scrape: candidate fetch failed", "candidate", c.URL, "error", err)
			continue
		}
		if raw := s.fromPage(sourceName, page.FinalURL, page.Body, c.DateHint); raw != nil {
			log.Info("scrape: candidate accepted",
				"candidate", c.URL, "score", c.Score, "text_len", len(raw.Text))
			return raw
		}
	}
	return nil
}

// fromPage extracts content from a post page, enforcing the minimum length.
func (s *Scraper) fromPage(sourceName, pageURL string, body []byte, dateHint string) *RawReport {
	text, _ := s.extractContent(body)
	if len(text) < s.config.MinContentChars {
		return nil
	}
	if dateHint == "" {
		dateHint = findDateHint(body)
	}
	return &RawReport{
		SourceName: sourceName,
		URL:        pageURL,
		Text:       capText(text, s.config.MaxContentChars),
		DateHint:   dateHint,
	}
}

// fromFeed handles reports URLs that serve RSS/Atom. Feed entries are scored
// like listing links, with the advantage that the feed carries publish dates
// and often the full post body.
func (s *Scraper) fromFeed(ctx context.Context, sourceName string, page *fetch.Result, log *slog.Logger) (*RawReport, error) {
	parsed, err := s.feed.ParseString(string(page.Body))
	if err != nil {
		log.Warn("scrape: feed parse failed", "error", err)
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var candidates []Candidate
	bodies := make(map[string]string, len(parsed.Items))
	for _, item := range parsed.Items {
		c := Candidate{
			Title: item.Title,
			URL:   item.Link,
			Score: s.config.Weights.Score(item.Title, item.Link),
		}
		if item.PublishedParsed != nil {
			c.DateHint = item.PublishedParsed.Format("January 2, 2006")
		} else if item.Published != "" {
			c.DateHint = item.Published
		}
		// Prefer content shipped in the feed over re-fetching the post.
		if body := firstNonEmpty(item.Content, item.Description); body != "" {
			bodies[c.URL] = body
		}
		candidates = append(candidates, c)
	}
	rank(candidates)

	tried := 0
	for _, c := range candidates {
		if tried >= s.config.MaxCandidates {
			break
		}
		if c.Score < s.config.MinCandidateScore {
			break
		}
		tried++

		if body, ok := bodies[c.URL]; ok {
			text := s.htmlToText(s.sanitize.Sanitize(body))
			if len(text) >= s.config.MinContentChars {
				return &RawReport{
					SourceName: sourceName,
					URL:        c.URL,
					Text:       capText(text, s.config.MaxContentChars),
					DateHint:   c.DateHint,
				}, nil
			}
		}
		if c.URL == "" {
			continue
		}
		entry, err := s.fetcher.Get(ctx, c.URL)
		if err != nil {
			log.Debug("scrape: feed entry fetch failed", "entry", c.URL, "error", err)
			continue
		}
		if raw := s.fromPage(sourceName, entry.FinalURL, entry.Body, c.DateHint); raw != nil {
			return raw, nil
		}
	}

	log.Warn("scrape: no feed entry qualified", "entries", len(parsed.Items))
	return nil, ErrNoContent
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
