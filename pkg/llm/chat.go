package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/newsbrief/internal/types"
)

var _ types.TextGenerator = (*ChatEngine)(nil)

// ErrEmptyResponse is returned when the model answers without any choice.
var ErrEmptyResponse = errors.New("llm: empty response")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	MaxTokens      int
	SystemTemplate string
	BaseURL        string // Ollama server URL
	Timeout        time.Duration
}

// ChatEngine turns a prompt into plain text through an LLM.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a ChatEngine backed by an Ollama server.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config = chatDefaults(config)

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(llm, config), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(model llms.Model, config ChatConfig) *ChatEngine {
	return &ChatEngine{
		config: chatDefaults(config),
		llm:    model,
	}
}

func chatDefaults(config ChatConfig) ChatConfig {
	if config.Model == "" {
		config.Model = "llama3.1"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	return config
}

// Generate sends prompt as a single human message and returns the first
// choice's text.
func (ce *ChatEngine) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	const op = "llm.ChatEngine.Generate"

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	var content []llms.MessageContent
	if ce.config.SystemTemplate != "" {
		content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate))
	}
	content = append(content, llms.TextParts(schema.ChatMessageTypeHuman, prompt))

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	text, err := firstChoice(response)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return text, nil
}

func firstChoice(response *llms.ContentResponse) (string, error) {
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}

// StripCodeFence removes a surrounding ``` or ```json fence from a model
// answer. Text without a leading fence is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	return strings.TrimSpace(s)
}
