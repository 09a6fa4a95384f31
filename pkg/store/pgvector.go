package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/newsbrief/internal/types"
)

// ErrNotFound is returned when no article matches.
var ErrNotFound = errors.New("not found")

var (
	_ types.ArticleWriter   = (*ArticleStore)(nil)
	_ types.ContentStore    = (*ArticleStore)(nil)
	_ types.EnrichmentStore = (*ArticleStore)(nil)
	_ types.DigestStore     = (*ArticleStore)(nil)
	_ types.QueryStore      = (*ArticleStore)(nil)
	_ types.TxManager       = (*ArticleStore)(nil)
)

type ArticleStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	Lists      int
}

// ArticleStore keeps articles and their embeddings in Postgres with pgvector.
type ArticleStore struct {
	config ArticleStoreConfig
	pool   *pgxpool.Pool
	table  string
}

func NewWithConfig(ctx context.Context, config ArticleStoreConfig) (*ArticleStore, error) {
	if config.TableName == "" {
		config.TableName = "articles"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.Lists == 0 {
		config.Lists = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &ArticleStore{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *ArticleStore) initialize(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	// Enable pgvector extension
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(500) NOT NULL,
			url VARCHAR(1000) NOT NULL UNIQUE,
			categories TEXT,
			content TEXT,
			published_date TIMESTAMPTZ,
			summary_simple TEXT,
			embedding vector(%d),
			image_filename VARCHAR(255)
		)`, s.table, s.config.VectorDim)

	if _, err = s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`,
		pgx.Identifier{s.config.TableName + "_embedding_idx"}.Sanitize(), s.table, s.config.Lists)

	if _, err = s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (s *ArticleStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

type txKey struct{}

type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WithTransaction runs fn inside one transaction. Store calls made with the
// context fn receives join that transaction. A context that already carries
// a transaction is reused as is.
func (s *ArticleStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *ArticleStore) exec(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	clean := sanitizeUTF8(*s)
	return &clean
}
