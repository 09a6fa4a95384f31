package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

const summaryPrompt = `Summarize the following article in a few sentences - explain what happened.

If the content is prohibited or you cannot generate a summary, respond with: "Content unavailable for summarization."

Title: %s

Content:
%s

Respond only with the summary, without any additional text.`

// Waiter blocks until the next call may start. *rate.Limiter implements it.
type Waiter interface {
	Wait(ctx context.Context) error
}

type GeneratorConfig struct {
	// ExcerptChars caps the content passed to the summary prompt.
	ExcerptChars int
	// Interval is the minimum spacing between summary calls. Zero disables pacing.
	Interval time.Duration
	// Limiter replaces the token bucket built from Interval.
	Limiter Waiter
	// Temperature for summary calls. Nil means 0.7.
	Temperature *float64
	Dimensions  int
	Logger      *slog.Logger
	Progress    func(done, total int)
}

// Generator fills in summaries and embeddings for stored articles.
// Both passes skip articles that already have their output.
type Generator struct {
	config      GeneratorConfig
	store       types.EnrichmentStore
	tx          types.TxManager
	text        types.TextGenerator
	embedder    types.Embedder
	limiter     Waiter
	temperature float64
	logger      *slog.Logger
}

type Stats struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
}

func NewWithConfig(store types.EnrichmentStore, tx types.TxManager, text types.TextGenerator,
	embedder types.Embedder, config GeneratorConfig) *Generator {
	if config.ExcerptChars <= 0 {
		config.ExcerptChars = 3000
	}
	temperature := 0.7
	if config.Temperature != nil {
		temperature = *config.Temperature
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 768
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	limiter := config.Limiter
	if limiter == nil {
		limit := rate.Inf
		if config.Interval > 0 {
			limit = rate.Every(config.Interval)
		}
		limiter = rate.NewLimiter(limit, 1)
	}

	return &Generator{
		config:      config,
		store:       store,
		tx:          tx,
		text:        text,
		embedder:    embedder,
		limiter:     limiter,
		temperature: temperature,
		logger:      config.Logger.With("component", "enrich"),
	}
}

// Summarize writes a summary for every article that has content and no
// summary yet.
func (g *Generator) Summarize(ctx context.Context) (Stats, error) {
	const op = "enrich.Generator.Summarize"

	articles, err := g.store.ListArticles(ctx, 0, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	stats := Stats{Total: len(articles)}
	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}

		switch {
		case a.HasSummary() || !a.HasContent():
			stats.Skipped++
		default:
			if err := g.summarize(ctx, a); err != nil {
				if ctx.Err() != nil {
					return stats, fmt.Errorf("%s: %w", op, ctx.Err())
				}
				stats.Failed++
				g.logger.Warn("summary failed", "id", a.ID, "error", err)
			} else {
				stats.Processed++
			}
		}
		g.progress(i+1, stats.Total)
	}

	g.logger.Info("summaries finished", "total", stats.Total, "processed", stats.Processed,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (g *Generator) summarize(ctx context.Context, a models.Article) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	prompt := fmt.Sprintf(summaryPrompt, a.Title, Excerpt(*a.Content, g.config.ExcerptChars))
	summary, err := g.text.Generate(ctx, prompt, g.temperature)
	if err != nil {
		return err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return errors.New("empty summary")
	}

	return g.store.UpdateSummary(ctx, a.ID, summary)
}

// Embed stores an embedding of title and summary for every regular article
// that has a summary and no embedding yet. Each article is handled in its
// own transaction; cancellation rolls back the current one and ends the pass.
func (g *Generator) Embed(ctx context.Context) (Stats, error) {
	const op = "enrich.Generator.Embed"

	all, err := g.store.ListArticles(ctx, 0, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	articles := all[:0:0]
	for _, a := range all {
		if !a.IsDigest() {
			articles = append(articles, a)
		}
	}

	stats := Stats{Total: len(articles)}
	for i, a := range articles {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("%s: %w", op, err)
		}

		switch {
		case a.HasEmbedding() || !a.HasSummary():
			stats.Skipped++
		default:
			err := g.tx.WithTransaction(ctx, func(ctx context.Context) error {
				return g.embed(ctx, a)
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					g.logger.Warn("embedding stopped", "id", a.ID, "reason", ctxErr)
					return stats, fmt.Errorf("%s: %w", op, ctxErr)
				}
				stats.Failed++
				g.logger.Warn("embedding failed", "id", a.ID, "error", err)
			} else {
				stats.Processed++
			}
		}
		g.progress(i+1, stats.Total)
	}

	g.logger.Info("embeddings finished", "total", stats.Total, "processed", stats.Processed,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (g *Generator) embed(ctx context.Context, a models.Article) error {
	vec, err := g.embedder.Embed(ctx, EmbeddingInput(a))
	if err != nil {
		return err
	}
	if len(vec) != g.config.Dimensions {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(vec), g.config.Dimensions)
	}
	return g.store.UpdateEmbedding(ctx, a.ID, vec)
}

func (g *Generator) progress(done, total int) {
	if g.config.Progress != nil {
		g.config.Progress(done, total)
	}
}

// Excerpt returns the first n characters of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func EmbeddingInput(a models.Article) string {
	var summary string
	if a.SummarySimple != nil {
		summary = *a.SummarySimple
	}
	return a.Title + "\n\n" + summary
}
