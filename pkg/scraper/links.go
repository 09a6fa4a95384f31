package scraper

import (
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/newsbrief/internal/models"
)

// DefaultMinTextLength is the shortest caption kept; shorter anchors are
// page numbers, "more" links and icons.
const DefaultMinTextLength = 5

// RawAnchor is an anchor as found in the page with its href already
// resolved against the page URL.
type RawAnchor struct {
	Text string
	Href string
}

// collectAnchors walks every a[href] in doc and resolves it against base.
func collectAnchors(doc *goquery.Document, base *url.URL, logger *slog.Logger) []RawAnchor {
	var raw []RawAnchor
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, exists := selection.Attr("href")
		if !exists {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			logger.Debug("skip unparsable href", "href", href, "error", err)
			return
		}

		raw = append(raw, RawAnchor{
			Text: selection.Text(),
			Href: base.ResolveReference(ref).String(),
		})
	})
	return raw
}

// DedupeLinks keeps http(s) anchors with a caption of at least minText
// characters and merges anchors sharing a URL. The longer caption wins
// and the link keeps the position where its URL was first seen.
func DedupeLinks(raw []RawAnchor, minText int) []models.Link {
	index := make(map[string]int)
	var links []models.Link

	for _, a := range raw {
		if !isHTTP(a.Href) {
			continue
		}

		text := normalizeText(a.Text)
		if text == "" || utf8.RuneCountInString(text) < minText {
			continue
		}

		if i, ok := index[a.Href]; ok {
			if utf8.RuneCountInString(text) > utf8.RuneCountInString(links[i].Text) {
				links[i].Text = text
			}
			continue
		}

		index[a.Href] = len(links)
		links = append(links, models.Link{Text: text, URL: a.Href})
	}

	return links
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isHTTP(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
