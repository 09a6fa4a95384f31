package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

// Mode selects how collected articles reach the store.
type Mode string

const (
	// ModeReplace deletes every stored article before inserting the new set.
	ModeReplace Mode = "replace"
	// ModeUpsert inserts new urls and refreshes existing ones in place.
	ModeUpsert Mode = "upsert"
)

const maxTitleLength = 500

type WriterConfig struct {
	Mode   Mode
	Logger *slog.Logger
}

// Writer turns classified links into stored articles.
type Writer struct {
	config    WriterConfig
	store     types.ArticleWriter
	publisher types.Publisher
	logger    *slog.Logger
}

type WriteResult struct {
	Written    int
	Deleted    int64
	Skipped    int
	Duplicates int
}

// NewWithConfig creates a Writer. publisher may be nil.
func NewWithConfig(store types.ArticleWriter, publisher types.Publisher, config WriterConfig) *Writer {
	if config.Mode == "" {
		config.Mode = ModeReplace
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Writer{
		config:    config,
		store:     store,
		publisher: publisher,
		logger:    config.Logger.With("component", "writer"),
	}
}

// Write stores one article per classified item. Items must index into links.
func (w *Writer) Write(ctx context.Context, links []models.Link, items []models.ClassifiedItem) (WriteResult, error) {
	const op = "ingest.Writer.Write"

	articles, skipped, dups, err := BuildArticles(links, items)
	if err != nil {
		return WriteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res := WriteResult{Skipped: skipped, Duplicates: dups}

	if skipped > 0 {
		w.logger.Warn("skipped items with out of range index", "count", skipped)
	}

	var event string
	switch w.config.Mode {
	case ModeUpsert:
		if err := w.store.UpsertArticles(ctx, articles); err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		event = models.EventArticlesUpserted
	case ModeReplace:
		w.logger.Warn("replacing all stored articles; content, summaries and embeddings are discarded")
		deleted, err := w.store.ReplaceArticles(ctx, articles)
		if err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		res.Deleted = deleted
		event = models.EventArticlesReplaced
	default:
		return res, fmt.Errorf("%s: unknown mode %q", op, w.config.Mode)
	}
	res.Written = len(articles)

	w.logger.Info("articles written",
		"mode", w.config.Mode,
		"written", res.Written,
		"deleted", res.Deleted,
		"duplicates", res.Duplicates)

	w.publish(ctx, models.Event{Type: event, Count: res.Written, Timestamp: time.Now().UTC()})
	return res, nil
}

func (w *Writer) publish(ctx context.Context, event models.Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Error("failed to publish event", "type", event.Type, "error", err)
	}
}

// BuildArticles maps items to articles. Items whose index falls outside
// links are counted as skipped. A repeated index keeps its first item.
func BuildArticles(links []models.Link, items []models.ClassifiedItem) (articles []models.Article, skipped, duplicates int, err error) {
	seen := make(map[int]bool, len(items))

	for _, item := range items {
		if item.Index < 0 || item.Index >= len(links) {
			skipped++
			continue
		}
		if seen[item.Index] {
			duplicates++
			continue
		}
		seen[item.Index] = true

		categories, err := models.CategoriesFromItem(item).Marshal()
		if err != nil {
			return nil, 0, 0, err
		}

		link := links[item.Index]
		articles = append(articles, models.Article{
			Title:      truncate(link.Text, maxTitleLength),
			URL:        link.URL,
			Categories: categories,
		})
	}
	return articles, skipped, duplicates, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
