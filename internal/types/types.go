package types

//go:generate mockgen -source=types.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/xhad/newsbrief/internal/models"
)

// Capabilities

type LinkSource interface {
	Links(ctx context.Context, pageURL string) ([]models.Link, error)
}

// LinkClassifier selects the news items among texts. Returned indices are
// positions in texts.
type LinkClassifier interface {
	Classify(ctx context.Context, texts []string) ([]models.ClassifiedItem, error)
}

type ContentFetcher interface {
	Fetch(ctx context.Context, pageURL string) (models.Extracted, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// Stores

type ArticleWriter interface {
	ReplaceArticles(ctx context.Context, articles []models.Article) (int64, error)
	UpsertArticles(ctx context.Context, articles []models.Article) error
}

type ContentStore interface {
	ListArticles(ctx context.Context, offset, limit int) ([]models.Article, error)
	UpdateContent(ctx context.Context, id int64, content string, published *time.Time) error
}

type EnrichmentStore interface {
	ListArticles(ctx context.Context, offset, limit int) ([]models.Article, error)
	UpdateSummary(ctx context.Context, id int64, summary string) error
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

type DigestStore interface {
	ListSummarized(ctx context.Context) ([]models.Article, error)
	UpsertDigest(ctx context.Context, title, narrative string, at time.Time) (models.Article, error)
}

type QueryStore interface {
	ListArticles(ctx context.Context, offset, limit int) ([]models.Article, error)
	GetArticle(ctx context.Context, id int64) (models.Article, error)
	CreateArticle(ctx context.Context, article models.Article) (models.Article, error)
	UpdateArticle(ctx context.Context, article models.Article) error
	DeleteArticle(ctx context.Context, id int64) error
	GetDigest(ctx context.Context) (models.Article, error)
	Related(ctx context.Context, id int64, k int) ([]models.Article, error)
}

// TxManager runs fn in a transaction carried by the context it passes on.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
