package digest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/llm"
)

// ErrParse marks a categorization answer that could not be used.
var ErrParse = errors.New("digest: unparseable categorization")

const defaultScore = 5

type rawRelevance struct {
	ArticleID      *int64    `json:"article_id"`
	Relevance      *string   `json:"relevance"`
	NewsValueScore *float64  `json:"news_value_score"`
	NewsValues     *[]string `json:"news_values"`
	Country        string    `json:"country"`
	Person         string    `json:"person"`
	Topic          string    `json:"topic"`
	Reasoning      *string   `json:"reasoning"`
}

// ParseRelevances decodes a categorization answer. The answer may be wrapped
// in a markdown code fence. Items about articles outside batch are dropped;
// any item missing a required key fails the whole answer.
func ParseRelevances(text string, batch map[int64]bool) ([]models.ArticleRelevance, error) {
	var raw []rawRelevance
	if err := json.Unmarshal([]byte(llm.StripCodeFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out := make([]models.ArticleRelevance, 0, len(raw))
	for i, r := range raw {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrParse, i, err)
		}
		if !batch[*r.ArticleID] {
			continue
		}

		score := defaultScore
		if r.NewsValueScore != nil {
			score = clampScore(*r.NewsValueScore)
		}

		out = append(out, models.ArticleRelevance{
			ArticleID:      *r.ArticleID,
			Tier:           models.ParseTier(strings.TrimSpace(*r.Relevance)),
			NewsValueScore: score,
			NewsValues:     *r.NewsValues,
			Country:        r.Country,
			Person:         r.Person,
			Topic:          r.Topic,
			Reasoning:      *r.Reasoning,
		})
	}
	return out, nil
}

func (r rawRelevance) validate() error {
	switch {
	case r.ArticleID == nil:
		return errors.New("missing article_id")
	case r.Relevance == nil:
		return errors.New("missing relevance")
	case r.NewsValues == nil:
		return errors.New("missing news_values")
	case r.Reasoning == nil:
		return errors.New("missing reasoning")
	}
	return nil
}

func clampScore(v float64) int {
	s := int(math.Round(v))
	return min(max(s, 1), 10)
}
