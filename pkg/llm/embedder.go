package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/newsbrief/internal/types"
)

var _ types.Embedder = (*Embedder)(nil)

// ErrDimension is returned when the model yields a vector of unexpected length.
var ErrDimension = errors.New("llm: unexpected embedding dimension")

type EmbedderConfig struct {
	Model      string
	BaseURL    string // Ollama server URL
	Dimensions int
}

type Embedder struct {
	config EmbedderConfig
	embed  embeddings.Embedder
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = embedderDefaults(config)

	client, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewEmbedderWithClient(client, config)
}

// NewEmbedderWithClient builds an Embedder on any embedding client.
// Newlines are preserved so title and summary stay separated.
func NewEmbedderWithClient(client embeddings.EmbedderClient, config EmbedderConfig) (*Embedder, error) {
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: embedderDefaults(config),
		embed:  emb,
	}, nil
}

func embedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 768
	}
	return config
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "llm.Embedder.Embed"

	vec, err := e.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(vec) != e.config.Dimensions {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", op, ErrDimension, len(vec), e.config.Dimensions)
	}
	return vec, nil
}
