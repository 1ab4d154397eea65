// Package fetch retrieves fly-shop report pages with bounded timeouts and
// body size limits. A fetch never blocks the pipeline indefinitely: timeout,
// non-2xx status, and oversized bodies all resolve to errors the caller
// records against the source's failure counter.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProbeTimeout bounds discovery URL validation.
const ProbeTimeout = 10 * time.Second

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration // per-request timeout. Default: 15s.
	MaxBytes  int64         // max response body size. Default: 2MB.
	UserAgent string
	// URLValidator validates URLs before fetch and on every redirect
	// (SSRF prevention). Default: ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 2 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "hatchwatch/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
}

// Result is a fetched page.
type Result struct {
	Body        []byte
	StatusCode  int
	FinalURL    string // after redirects; base for resolving relative links
	ContentType string
}

// Fetcher performs HTTP GETs against shop websites.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with a redirect cap and SSRF protection on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked (SSRF): %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Get retrieves a URL. Non-2xx statuses are errors; the Result still carries
// the status code for logging.
func (f *Fetcher) Get(ctx context.Context, url string) (*Result, error) {
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("URL blocked (SSRF): %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	result := &Result{
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	result.Body = body
	return result, nil
}

// Probe checks whether a URL is reachable: HEAD first, falling back to GET
// for servers that reject HEAD. Statuses 200-399 validate. Bounded by
// ProbeTimeout regardless of the fetcher's own timeout.
func (f *Fetcher) Probe(ctx context.Context, url string) bool {
	if f.config.URLValidator(url) != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return false
		}
		req.Header.Set("User-Agent", f.config.UserAgent)
		resp, err := f.client.Do(req)
		if err != nil {
			// Network-level failure: GET will not fare better.
			return false
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			return true
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			return false
		}
	}
	return false
}

// LooksLikeFeed reports whether a response is RSS/Atom rather than HTML,
// by content type or by sniffing the body prefix.
func LooksLikeFeed(r *Result) bool {
	ct := strings.ToLower(r.ContentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") ||
		strings.Contains(ct, "application/xml") || strings.Contains(ct, "text/xml") {
		return true
	}
	head := strings.TrimSpace(string(r.Body[:min(len(r.Body), 512)]))
	return strings.HasPrefix(head, "<?xml") || strings.HasPrefix(head, "<rss") ||
		strings.HasPrefix(head, "<feed")
}
