package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
	"golang.org/x/time/rate"
)

var (
	_ types.LinkSource     = (*Scraper)(nil)
	_ types.ContentFetcher = (*Scraper)(nil)
)

type ScraperConfig struct {
	RateLimit     float64 // requests per second
	Timeout       time.Duration
	UserAgent     string
	MinTextLength int
	Logger        *slog.Logger
}

// Scraper fetches listing pages for links and article pages for their
// readable content. Requests share one rate limiter.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.UserAgent == "" {
		config.UserAgent = "newsbrief/1.0"
	}
	if config.MinTextLength == 0 {
		config.MinTextLength = DefaultMinTextLength
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  config.Logger.With("component", "scraper"),
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

// Links fetches pageURL and returns its deduplicated article candidates.
func (s *Scraper) Links(ctx context.Context, pageURL string) ([]models.Link, error) {
	const op = "scraper.Links"

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw := collectAnchors(doc, base, s.logger)
	links := DedupeLinks(raw, s.config.MinTextLength)
	s.logger.Info("links collected", "url", pageURL, "raw", len(raw), "unique", len(links))

	return links, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, pageURL)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}
