package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/newsbrief/internal/models"
)

var contentSelectors = []string{
	"article",
	"main",
	"[itemprop='articleBody']",
	".article-body",
	".content",
	"#content",
}

var noiseSelectors = "script, style, noscript, nav, header, footer, aside, form, iframe, figure figcaption, .advert, .ad"

var dateSelectors = []struct {
	selector string
	attr     string
}{
	{"meta[property='article:published_time']", "content"},
	{"meta[itemprop='datePublished']", "content"},
	{"meta[name='date']", "content"},
	{"meta[name='pubdate']", "content"},
	{"meta[name='publish-date']", "content"},
	{"meta[property='og:published_time']", "content"},
	{"time[datetime]", "datetime"},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Fetch downloads pageURL and returns its main text as markdown together
// with the publication date when the page declares one.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) (models.Extracted, error) {
	const op = "scraper.Fetch"

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return models.Extracted{}, fmt.Errorf("%s: not an http(s) url: %q", op, pageURL)
	}

	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return models.Extracted{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Extracted{
		Markdown:  extractMarkdown(doc, u.Host),
		Published: publishedDate(doc),
	}, nil
}

func extractMarkdown(doc *goquery.Document, domain string) string {
	doc.Find(noiseSelectors).Remove()

	var selection *goquery.Selection
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector).First(); selected.Length() > 0 {
			selection = selected
			break
		}
	}

	// Fallback to body if no main content found
	if selection == nil {
		selection = doc.Find("body")
	}

	converter := md.NewConverter(domain, true, nil)
	return strings.TrimSpace(converter.Convert(selection))
}

func publishedDate(doc *goquery.Document) *time.Time {
	for _, ds := range dateSelectors {
		value, ok := doc.Find(ds.selector).First().Attr(ds.attr)
		if !ok {
			continue
		}
		if t, ok := parseDate(value); ok {
			return &t
		}
	}
	return nil
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
