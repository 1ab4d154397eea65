// CLAUDE:SUMMARY Oracle-assisted discovery of fly-shop report sources: suggest, probe, persist.
package hatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/riverbind/hatchwatch/internal/store"
	"github.com/riverbind/hatchwatch/oracle"
)

// reportPathSuffixes are probed in order against a discovered shop's site.
// The order reflects how often real shop platforms use each path.
var reportPathSuffixes = []string{
	"/fishing-reports",
	"/fishing-report",
	"/reports",
	"/blog",
	"/pages/fishing-reports",
	"/pages/fishing-report",
}

type discoveryReply struct {
	Name       string `json:"name"`
	Website    string `json:"website"`
	ReportsURL string `json:"reports_url"`
}

// DiscoverSource asks the oracle for a fly shop covering the water and
// registers the first URL that answers: the oracle's suggested reports URL
// first, then the usual report paths on its site, then the bare website.
func (s *Service) DiscoverSource(ctx context.Context, water *store.WaterBody) (*store.ShopSource, error) {
	reply, err := s.oracle.Complete(ctx, discoveryPrompt(water))
	if err != nil {
		return nil, fmt.Errorf("discovery oracle call: %w", err)
	}
	var parsed discoveryReply
	if err := oracle.ExtractJSON(reply, &parsed); err != nil {
		return nil, fmt.Errorf("parse discovery reply: %w", err)
	}
	website := normalizeWebsite(parsed.Website)
	if parsed.Name == "" || website == "" {
		return nil, fmt.Errorf("discovery reply missing shop name or website")
	}

	reportsURL := ""
	if suggested := normalizeWebsite(parsed.ReportsURL); suggested != "" && s.fetcher.Probe(ctx, suggested) {
		reportsURL = suggested
	}
	if reportsURL == "" {
		for _, suffix := range reportPathSuffixes {
			if s.fetcher.Probe(ctx, website+suffix) {
				reportsURL = website + suffix
				break
			}
		}
	}
	if reportsURL == "" {
		if !s.fetcher.Probe(ctx, website) {
			return nil, fmt.Errorf("no reachable URL for %s at %s", parsed.Name, website)
		}
		reportsURL = website
	}

	src := &store.ShopSource{
		ID:         s.newID(),
		Name:       parsed.Name,
		Website:    website,
		ReportsURL: reportsURL,
		Waters:     []string{water.Name},
		Active:     true,
	}
	if err := s.store.InsertSource(ctx, src, s.now().UnixMilli()); err != nil {
		return nil, fmt.Errorf("persist discovered source: %w", err)
	}
	s.logger.Info("discovered fly shop source", "shop", src.Name, "reports_url", src.ReportsURL, "water", water.Name)
	return src, nil
}

func discoveryPrompt(water *store.WaterBody) string {
	region := water.State
	if region == "" {
		region = "its region"
	}
	return fmt.Sprintf(`Name one real fly shop in %s known for publishing online fishing reports covering %s.
Reply with JSON only: {"name": "shop name", "website": "https://...", "reports_url": "https://... direct link to their fishing reports page"}`, region, water.Name)
}

// normalizeWebsite trims the URL to scheme+host+path with no trailing slash,
// defaulting to https when the oracle omits the scheme.
func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}
