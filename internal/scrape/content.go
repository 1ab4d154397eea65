package scrape

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// contentSelectors is the ordered fallback chain for locating the report body
// on a post page: article/content-class containers first, then <main>.
// Whole-page text is the final fallback, handled separately.
var contentSelectors = []string{
	"article",
	".post-content",
	".entry-content",
	".blog-content",
	".article-body",
	".blog-post",
	"#content",
	".content",
	"main",
}

// dateSelectors locate human-readable date strings near the content,
// independent of whatever date the extractor later finds in the text.
var dateSelectors = []string{
	"time[datetime]",
	"time",
	".post-date",
	".entry-date",
	".published",
	".date",
}

// extractContent pulls the main content text from a page using the selector
// chain, falling back to whole-page text. Returns the cleaned text and the
// selected fragment's HTML (empty for the whole-page fallback).
func (s *Scraper) extractContent(body []byte) (string, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		fragment, err := node.Html()
		if err != nil {
			continue
		}
		// Sanitize before text conversion so script/style/nav junk inside
		// the container never reaches the oracle.
		clean := s.sanitize.Sanitize(fragment)
		text := s.htmlToText(clean)
		if text != "" {
			return text, clean
		}
	}

	// Whole-page fallback: walk the parsed tree directly.
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	return collapseWhitespace(collectText(root)), ""
}

// htmlToText converts sanitized HTML to markdown-ish text. Markdown keeps
// headings and lists legible in oracle prompts; on conversion failure the
// tag-stripped plain text is used instead.
func (s *Scraper) htmlToText(sanitized string) string {
	md, err := s.md.ConvertString(sanitized, converter.WithDomain(""))
	if err == nil && strings.TrimSpace(md) != "" {
		return collapseWhitespace(md)
	}
	plain := s.stripTags.Sanitize(sanitized)
	return collapseWhitespace(plain)
}

// findDateHint looks for a date string in date/time-tagged elements.
func findDateHint(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range dateSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if dt, ok := node.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// skipTags are elements whose text never belongs to report content.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "form": true,
}

// collectText walks an HTML tree gathering visible text.
func collectText(n *html.Node) string {
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data + " "
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(collectText(c))
	}
	return b.String()
}

var (
	horizontalWS = regexp.MustCompile(`[ \t\r]+`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// collapseWhitespace squeezes runs of spaces and blank lines.
func collapseWhitespace(s string) string {
	s = horizontalWS.ReplaceAllString(s, " ")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// capText truncates text to max bytes, backing up to a rune boundary so a
// multi-byte character is never split.
func capText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
