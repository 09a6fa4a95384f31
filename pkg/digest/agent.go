package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

// ErrEmptyNarrative is returned when the model produces no digest text.
var ErrEmptyNarrative = errors.New("digest: empty narrative")

// TitlePrefix starts the title of every stored digest.
const TitlePrefix = "Přehled zpráv - "

// State is a step of a digest run.
type State int

const (
	StateFetchSummarized State = iota
	StateCategorize
	StateSelectAndRank
	StateGenerateNarrative
	StateUpsert
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetchSummarized:
		return "fetch_summarized"
	case StateCategorize:
		return "categorize"
	case StateSelectAndRank:
		return "select_and_rank"
	case StateGenerateNarrative:
		return "generate_narrative"
	case StateUpsert:
		return "upsert"
	case StateDone:
		return "done"
	}
	return "unknown"
}

type AgentConfig struct {
	BatchSize   int
	Limits      SelectionLimits
	// Temperature for both model calls. Nil means 0.3.
	Temperature *float64
	UserProfile string
	NewsValues  string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Agent builds the personalized digest from summarized articles.
type Agent struct {
	config      AgentConfig
	store       types.DigestStore
	llm         types.TextGenerator
	publisher   types.Publisher
	temperature float64
	logger      *slog.Logger
}

// Ranked is a selected article with its relevance.
type Ranked struct {
	models.ArticleRelevance
	Article models.Article
}

type Result struct {
	Articles       int
	Categorized    int
	DroppedBatches int
	Ranked         []Ranked
	Narrative      string
	Digest         models.Article
	Written        bool
}

// NewWithConfig creates an Agent. publisher may be nil.
func NewWithConfig(store types.DigestStore, llm types.TextGenerator, publisher types.Publisher, config AgentConfig) *Agent {
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if config.Limits == (SelectionLimits{}) {
		config.Limits = DefaultLimits
	}
	temperature := 0.3
	if config.Temperature != nil {
		temperature = *config.Temperature
	}
	if strings.TrimSpace(config.UserProfile) == "" {
		config.UserProfile = DefaultUserProfile
	}
	if strings.TrimSpace(config.NewsValues) == "" {
		config.NewsValues = DefaultNewsValues
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Agent{
		config:      config,
		store:       store,
		llm:         llm,
		publisher:   publisher,
		temperature: temperature,
		logger:      config.Logger.With("component", "digest"),
	}
}

type run struct {
	articles   []models.Article
	relevances []models.ArticleRelevance
	selected   []models.ArticleRelevance
}

// Run walks the states from FetchSummarized to Done. It stops without
// writing when there is nothing to summarize or nothing is selected.
func (a *Agent) Run(ctx context.Context) (Result, error) {
	const op = "digest.Agent.Run"

	var (
		res   Result
		r     run
		state = StateFetchSummarized
	)

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%s: %s: %w", op, state, err)
		}
		a.logger.Info("entering state", "state", state)

		next, err := a.step(ctx, state, &r, &res)
		if err != nil {
			a.logger.Error("digest run failed", "state", state, "error", err)
			return res, fmt.Errorf("%s: %s: %w", op, state, err)
		}
		state = next
	}

	a.logger.Info("digest run finished", "written", res.Written, "selected", len(res.Ranked))
	return res, nil
}

func (a *Agent) step(ctx context.Context, state State, r *run, res *Result) (State, error) {
	switch state {
	case StateFetchSummarized:
		articles, err := a.store.ListSummarized(ctx)
		if err != nil {
			return state, err
		}
		r.articles = articles
		res.Articles = len(articles)
		if len(articles) == 0 {
			a.logger.Warn("no summarized articles")
			return StateDone, nil
		}
		return StateCategorize, nil

	case StateCategorize:
		relevances, dropped, err := a.categorize(ctx, r.articles)
		if err != nil {
			return state, err
		}
		r.relevances = relevances
		res.Categorized = len(relevances)
		res.DroppedBatches = dropped
		return StateSelectAndRank, nil

	case StateSelectAndRank:
		r.selected = SelectAndRank(r.relevances, a.config.Limits)
		res.Ranked = join(r.selected, r.articles)
		if len(res.Ranked) == 0 {
			a.logger.Warn("no relevant articles selected")
			return StateDone, nil
		}
		return StateGenerateNarrative, nil

	case StateGenerateNarrative:
		narrative, err := a.narrative(ctx, res.Ranked)
		if err != nil {
			return state, err
		}
		res.Narrative = narrative
		return StateUpsert, nil

	case StateUpsert:
		now := a.config.Now()
		digest, err := a.store.UpsertDigest(ctx, Title(now), res.Narrative, now)
		if err != nil {
			return state, err
		}
		res.Digest = digest
		res.Written = true
		a.publish(ctx, models.Event{
			Type:      models.EventDigestUpdated,
			ArticleID: digest.ID,
			Title:     digest.Title,
			Count:     len(res.Ranked),
			Timestamp: now.UTC(),
		})
		return StateDone, nil
	}

	return state, fmt.Errorf("unexpected state %d", state)
}

// Title returns the stored title for a digest generated at t.
func Title(t time.Time) string {
	return TitlePrefix + t.Format("2006-01-02 15:04")
}

type batchItem struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	PublishedDate *time.Time `json:"published_date"`
}

// categorize scores articles batch by batch. A batch whose generation or
// parsing fails is dropped and the run goes on.
func (a *Agent) categorize(ctx context.Context, articles []models.Article) ([]models.ArticleRelevance, int, error) {
	var (
		out     []models.ArticleRelevance
		dropped int
	)

	for start := 0; start < len(articles); start += a.config.BatchSize {
		end := min(start+a.config.BatchSize, len(articles))
		batch := articles[start:end]

		items := make([]batchItem, len(batch))
		ids := make(map[int64]bool, len(batch))
		for i, art := range batch {
			items[i] = batchItem{ID: art.ID, Title: art.Title, PublishedDate: art.PublishedDate}
			if art.SummarySimple != nil {
				items[i].Summary = *art.SummarySimple
			}
			ids[art.ID] = true
		}

		payload, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, dropped, err
		}

		prompt := fmt.Sprintf(categorizePrompt, a.config.UserProfile, a.config.NewsValues, payload)
		answer, err := a.llm.Generate(ctx, prompt, a.temperature)
		if err != nil {
			if ctx.Err() != nil {
				return nil, dropped, ctx.Err()
			}
			dropped++
			a.logger.Warn("categorization batch failed", "batch_start", start, "error", err)
			continue
		}

		relevances, err := ParseRelevances(answer, ids)
		if err != nil {
			dropped++
			a.logger.Warn("categorization batch dropped", "batch_start", start, "error", err)
			continue
		}
		out = append(out, relevances...)
	}

	a.logger.Info("articles categorized", "count", len(out), "dropped_batches", dropped)
	return out, dropped, nil
}

func join(selected []models.ArticleRelevance, articles []models.Article) []Ranked {
	byID := make(map[int64]models.Article, len(articles))
	for _, art := range articles {
		byID[art.ID] = art
	}

	ranked := make([]Ranked, 0, len(selected))
	for _, rel := range selected {
		if art, ok := byID[rel.ArticleID]; ok {
			ranked = append(ranked, Ranked{ArticleRelevance: rel, Article: art})
		}
	}
	return ranked
}

type narrativeItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Country string `json:"country"`
	Person  string `json:"person"`
	Topic   string `json:"topic"`
	Score   int    `json:"score"`
}

func (a *Agent) narrative(ctx context.Context, ranked []Ranked) (string, error) {
	items := make([]narrativeItem, len(ranked))
	for i, r := range ranked {
		items[i] = narrativeItem{
			Title:   r.Article.Title,
			Country: r.Country,
			Person:  r.Person,
			Topic:   r.Topic,
			Score:   r.NewsValueScore,
		}
		if r.Article.SummarySimple != nil {
			items[i].Summary = *r.Article.SummarySimple
		}
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}

	text, err := a.llm.Generate(ctx, fmt.Sprintf(narrativePrompt, a.config.UserProfile, payload), a.temperature)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyNarrative
	}

	a.logger.Info("narrative generated", "chars", len([]rune(text)))
	return text, nil
}

func (a *Agent) publish(ctx context.Context, event models.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Error("failed to publish event", "type", event.Type, "error", err)
	}
}
