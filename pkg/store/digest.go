package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xhad/newsbrief/internal/models"
)

// ListSummarized returns every article with a summary, the digest row
// excluded.
func (s *ArticleStore) ListSummarized(ctx context.Context) ([]models.Article, error) {
	const op = "store.ArticleStore.ListSummarized"

	rows, err := s.exec(ctx).Query(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE summary_simple IS NOT NULL AND url <> $1
		ORDER BY id`, articleColumns, s.table), models.DigestURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	articles, err := collectArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

// UpsertDigest writes the single digest row. Content and summary both hold
// the narrative.
func (s *ArticleStore) UpsertDigest(ctx context.Context, title, narrative string, at time.Time) (models.Article, error) {
	const op = "store.ArticleStore.UpsertDigest"

	narrative = sanitizeUTF8(narrative)
	row := s.exec(ctx).QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (title, url, content, summary_simple, published_date)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			summary_simple = EXCLUDED.summary_simple,
			published_date = EXCLUDED.published_date
		RETURNING %s`, s.table, articleColumns),
		sanitizeUTF8(title), models.DigestURL, narrative, at)

	a, err := scanArticle(row)
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *ArticleStore) GetDigest(ctx context.Context) (models.Article, error) {
	const op = "store.ArticleStore.GetDigest"

	row := s.exec(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE url = $1", articleColumns, s.table), models.DigestURL)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Article{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Related returns up to k articles nearest to id by cosine distance. The
// article itself, the digest and rows without an embedding never appear.
// An article without an embedding has no neighbours.
func (s *ArticleStore) Related(ctx context.Context, id int64, k int) ([]models.Article, error) {
	const op = "store.ArticleStore.Related"

	if k <= 0 {
		return nil, nil
	}

	var hasEmbedding bool
	err := s.exec(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT embedding IS NOT NULL FROM %s WHERE id = $1", s.table), id).
		Scan(&hasEmbedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !hasEmbedding {
		return nil, nil
	}

	rows, err := s.exec(ctx).Query(ctx, fmt.Sprintf(`
		SELECT %[1]s FROM %[2]s
		WHERE id <> $1 AND url <> $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> (SELECT embedding FROM %[2]s WHERE id = $1)
		LIMIT $3`, articleColumns, s.table), id, models.DigestURL, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	articles, err := collectArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}
