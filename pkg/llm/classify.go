package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

var _ types.LinkClassifier = (*ClassifierEngine)(nil)

// ErrSchema marks a classification answer that does not match the
// expected structure.
var ErrSchema = errors.New("llm: response violates classification schema")

const classifyInstruction = `You are a newsroom assistant. Below is an indexed list of link captions taken from the front page of a news site.
Select ONLY the captions that are genuine news: something new happened AND it has an identifiable impact on people, a country, a market or an institution.
Exclude navigation, advertising, login and technical pages, opinion and analysis pieces, entertainment, and sports results without broader social impact.

For every selected caption return:
- "index": its index from the list (0-based)
- "what_happened": what happened, 10 to 500 characters
- "impact_on": who or what is affected, 5 to 300 characters
- "countries": countries concerned (at most 10, use "EU" for the union as a whole)
- "people": public figures concerned, by name or office (at most 20)

Respond with a JSON object {"articles": [...]} and nothing else.

Captions:
%s`

type ClassifierConfig struct {
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ClassifierEngine asks the model for a structured selection of news items.
type ClassifierEngine struct {
	config ClassifierConfig
	llm    llms.Model
}

// NewClassifierWithConfig creates a ClassifierEngine that runs Ollama in
// JSON mode.
func NewClassifierWithConfig(config ClassifierConfig) (*ClassifierEngine, error) {
	config = classifierDefaults(config)

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
		ollama.WithFormat("json"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewClassifierWithModel(llm, config), nil
}

func NewClassifierWithModel(model llms.Model, config ClassifierConfig) *ClassifierEngine {
	return &ClassifierEngine{
		config: classifierDefaults(config),
		llm:    model,
	}
}

func classifierDefaults(config ClassifierConfig) ClassifierConfig {
	if config.Model == "" {
		config.Model = "llama3.1"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	return config
}

// Classify returns the selected items with indices into texts.
func (e *ClassifierEngine) Classify(ctx context.Context, texts []string) ([]models.ClassifiedItem, error) {
	const op = "llm.ClassifierEngine.Classify"

	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(classifyInstruction, indexedList(texts))),
	}

	response, err := e.llm.GenerateContent(ctx, content, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := firstChoice(response)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := parseSelection(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func indexedList(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i, t)
	}
	return b.String()
}

// rawItem mirrors models.ClassifiedItem with an optional index so a
// missing index is told apart from index 0.
type rawItem struct {
	Index        *int     `json:"index"`
	WhatHappened string   `json:"what_happened"`
	ImpactOn     string   `json:"impact_on"`
	Countries    []string `json:"countries"`
	People       []string `json:"people"`
}

type selection struct {
	Articles []rawItem `json:"articles"`
}

func parseSelection(text string) ([]models.ClassifiedItem, error) {
	var sel selection
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &sel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	items := make([]models.ClassifiedItem, 0, len(sel.Articles))
	for i, raw := range sel.Articles {
		if raw.Index == nil {
			return nil, fmt.Errorf("%w: item %d has no index", ErrSchema, i)
		}

		item := models.ClassifiedItem{
			Index:        *raw.Index,
			WhatHappened: raw.WhatHappened,
			ImpactOn:     raw.ImpactOn,
			Countries:    raw.Countries,
			People:       raw.People,
		}
		if err := validateItem(item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func validateItem(item models.ClassifiedItem) error {
	if n := utf8.RuneCountInString(item.WhatHappened); n < 10 || n > 500 {
		return fmt.Errorf("%w: item %d what_happened has %d characters", ErrSchema, item.Index, n)
	}
	if n := utf8.RuneCountInString(item.ImpactOn); n < 5 || n > 300 {
		return fmt.Errorf("%w: item %d impact_on has %d characters", ErrSchema, item.Index, n)
	}
	if len(item.Countries) > 10 {
		return fmt.Errorf("%w: item %d lists %d countries", ErrSchema, item.Index, len(item.Countries))
	}
	if len(item.People) > 20 {
		return fmt.Errorf("%w: item %d lists %d people", ErrSchema, item.Index, len(item.People))
	}
	return nil
}
