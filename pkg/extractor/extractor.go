package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

// ErrContentTooShort is reported for pages whose readable text is below
// the configured minimum.
var ErrContentTooShort = errors.New("extractor: content too short")

type ExtractorConfig struct {
	MinContentLength int
	Logger           *slog.Logger
	// Progress is called after each article with the number handled so far.
	Progress func(done, total int)
}

type Extractor struct {
	config  ExtractorConfig
	store   types.ContentStore
	fetcher types.ContentFetcher
	logger  *slog.Logger
}

type Stats struct {
	Total     int
	Succeeded int
	Failed    int
}

func NewWithConfig(store types.ContentStore, fetcher types.ContentFetcher, config ExtractorConfig) *Extractor {
	if config.MinContentLength <= 0 {
		config.MinContentLength = 100
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Extractor{
		config:  config,
		store:   store,
		fetcher: fetcher,
		logger:  config.Logger.With("component", "extractor"),
	}
}

// Run fetches the page of every stored article and saves its markdown and
// publication date. Each article is written on its own, so a later failure
// never undoes an earlier success.
func (e *Extractor) Run(ctx context.Context) (Stats, error) {
	const op = "extractor.Extractor.Run"

	articles, err := e.store.ListArticles(ctx, 0, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	stats := Stats{Total: len(articles)}
	e.logger.Info("extracting content", "articles", stats.Total)

	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}

		if err := e.extract(ctx, a); err != nil {
			if ctx.Err() != nil {
				return stats, fmt.Errorf("%s: %w", op, ctx.Err())
			}
			stats.Failed++
			e.logger.Warn("extraction failed", "id", a.ID, "url", a.URL, "error", err)
		} else {
			stats.Succeeded++
		}

		if e.config.Progress != nil {
			e.config.Progress(i+1, stats.Total)
		}
	}

	e.logger.Info("extraction finished",
		"total", stats.Total,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed)
	return stats, nil
}

func (e *Extractor) extract(ctx context.Context, a models.Article) error {
	page, err := e.fetcher.Fetch(ctx, a.URL)
	if err != nil {
		return err
	}

	markdown := strings.TrimSpace(page.Markdown)
	if n := utf8.RuneCountInString(markdown); n < e.config.MinContentLength {
		return fmt.Errorf("%w: %d characters", ErrContentTooShort, n)
	}

	return e.store.UpdateContent(ctx, a.ID, markdown, page.Published)
}
