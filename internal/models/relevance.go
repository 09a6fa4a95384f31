package models

import "time"

// RelevanceTier is how interesting an article is for the reader profile.
type RelevanceTier int

const (
	TierUnknown RelevanceTier = iota
	TierUnnecessary
	TierLowInterest
	TierHighInterest
	TierEssential
)

var tierLabels = map[RelevanceTier]string{
	TierUnnecessary:  "Nezajímavé",
	TierLowInterest:  "Málo zajímavé",
	TierHighInterest: "Velmi zajímavé",
	TierEssential:    "Nezbytné",
}

// ParseTier maps the Czech label used in prompts back to a tier.
// Unknown labels yield TierUnknown.
func ParseTier(label string) RelevanceTier {
	for tier, l := range tierLabels {
		if l == label {
			return tier
		}
	}
	return TierUnknown
}

func (t RelevanceTier) String() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return "unknown"
}

// Primary reports whether the tier belongs in the digest without backfill.
func (t RelevanceTier) Primary() bool {
	return t == TierEssential || t == TierHighInterest
}

type ArticleRelevance struct {
	ArticleID      int64         `json:"article_id"`
	Tier           RelevanceTier `json:"-"`
	NewsValueScore int           `json:"news_value_score"`
	NewsValues     []string      `json:"news_values"`
	Country        string        `json:"country"`
	Person         string        `json:"person"`
	Topic          string        `json:"topic"`
	Reasoning      string        `json:"reasoning"`
}

// Event is published after a pipeline stage changes stored articles.
type Event struct {
	Type      string    `json:"type"`
	ArticleID int64     `json:"article_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventArticlesReplaced = "articles.replaced"
	EventArticlesUpserted = "articles.upserted"
	EventDigestUpdated    = "digest.updated"
)
