package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/newsbrief/internal/models"
)

const articleColumns = `id, title, url, COALESCE(categories, ''), content, published_date,
	summary_simple, embedding, image_filename`

func scanArticle(row pgx.Row) (models.Article, error) {
	var (
		a   models.Article
		emb *pgvector.Vector
	)
	err := row.Scan(&a.ID, &a.Title, &a.URL, &a.Categories, &a.Content, &a.PublishedDate,
		&a.SummarySimple, &emb, &a.ImageFilename)
	if err != nil {
		return models.Article{}, err
	}
	if emb != nil {
		a.Embedding = emb.Slice()
	}
	return a, nil
}

func collectArticles(rows pgx.Rows) ([]models.Article, error) {
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReplaceArticles deletes every row and inserts articles in one transaction.
// It returns the number of deleted rows.
func (s *ArticleStore) ReplaceArticles(ctx context.Context, articles []models.Article) (int64, error) {
	const op = "store.ArticleStore.ReplaceArticles"

	var deleted int64
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		tag, err := s.exec(ctx).Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()

		return s.insertBatch(ctx, articles, "")
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return deleted, nil
}

// UpsertArticles inserts new urls and refreshes title and categories of
// existing ones. Content, summaries and embeddings are left in place.
func (s *ArticleStore) UpsertArticles(ctx context.Context, articles []models.Article) error {
	const op = "store.ArticleStore.UpsertArticles"

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		return s.insertBatch(ctx, articles,
			" ON CONFLICT (url) DO UPDATE SET title = EXCLUDED.title, categories = EXCLUDED.categories")
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *ArticleStore) insertBatch(ctx context.Context, articles []models.Article, conflict string) error {
	if len(articles) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (title, url, categories, content, published_date, summary_simple, image_filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7)%s`, s.table, conflict)

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(query,
			sanitizeUTF8(a.Title),
			a.URL,
			nullable(sanitizeUTF8(a.Categories)),
			sanitizePtr(a.Content),
			a.PublishedDate,
			sanitizePtr(a.SummarySimple),
			a.ImageFilename,
		)
	}

	br := s.exec(ctx).SendBatch(ctx, batch)
	defer br.Close()

	for _, a := range articles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert %s: %w", a.URL, err)
		}
	}
	return br.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListArticles returns articles ordered by id. A non-positive limit returns
// every row after offset.
func (s *ArticleStore) ListArticles(ctx context.Context, offset, limit int) ([]models.Article, error) {
	const op = "store.ArticleStore.ListArticles"

	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.exec(ctx).Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY id OFFSET $1 LIMIT $2", articleColumns, s.table),
		max(offset, 0), lim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	articles, err := collectArticles(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

func (s *ArticleStore) GetArticle(ctx context.Context, id int64) (models.Article, error) {
	const op = "store.ArticleStore.GetArticle"

	row := s.exec(ctx).QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", articleColumns, s.table), id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Article{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

func (s *ArticleStore) CreateArticle(ctx context.Context, a models.Article) (models.Article, error) {
	const op = "store.ArticleStore.CreateArticle"

	row := s.exec(ctx).QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (title, url, categories, content, published_date, summary_simple, image_filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, s.table, articleColumns),
		sanitizeUTF8(a.Title), a.URL, nullable(sanitizeUTF8(a.Categories)),
		sanitizePtr(a.Content), a.PublishedDate, sanitizePtr(a.SummarySimple), a.ImageFilename)

	created, err := scanArticle(row)
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpdateArticle overwrites the editable columns of an existing article.
// The embedding is not touched.
func (s *ArticleStore) UpdateArticle(ctx context.Context, a models.Article) error {
	const op = "store.ArticleStore.UpdateArticle"

	tag, err := s.exec(ctx).Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET title = $2, url = $3, categories = $4, content = $5,
			published_date = $6, summary_simple = $7, image_filename = $8
		WHERE id = $1`, s.table),
		a.ID, sanitizeUTF8(a.Title), a.URL, nullable(sanitizeUTF8(a.Categories)),
		sanitizePtr(a.Content), a.PublishedDate, sanitizePtr(a.SummarySimple), a.ImageFilename)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *ArticleStore) DeleteArticle(ctx context.Context, id int64) error {
	const op = "store.ArticleStore.DeleteArticle"

	tag, err := s.exec(ctx).Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (s *ArticleStore) UpdateContent(ctx context.Context, id int64, content string, published *time.Time) error {
	const op = "store.ArticleStore.UpdateContent"

	return s.updateByID(ctx, op, "content = $2, published_date = $3", id, sanitizeUTF8(content), published)
}

func (s *ArticleStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	const op = "store.ArticleStore.UpdateSummary"

	return s.updateByID(ctx, op, "summary_simple = $2", id, sanitizeUTF8(summary))
}

func (s *ArticleStore) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	const op = "store.ArticleStore.UpdateEmbedding"

	if len(embedding) != s.config.VectorDim {
		return fmt.Errorf("%s: embedding has %d dimensions, want %d", op, len(embedding), s.config.VectorDim)
	}
	return s.updateByID(ctx, op, "embedding = $2", id, pgvector.NewVector(embedding))
}

func (s *ArticleStore) updateByID(ctx context.Context, op, set string, id int64, args ...any) error {
	tag, err := s.exec(ctx).Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", s.table, set),
		append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
