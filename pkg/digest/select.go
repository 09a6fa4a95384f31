package digest

import (
	"sort"

	"github.com/xhad/newsbrief/internal/models"
)

type SelectionLimits struct {
	MaxPrimary  int
	MinPrimary  int
	MaxBackfill int
}

var DefaultLimits = SelectionLimits{MaxPrimary: 15, MinPrimary: 5, MaxBackfill: 10}

// SelectAndRank picks the articles for the digest. It takes the first
// MaxPrimary essential or highly interesting items; when fewer than
// MinPrimary were found it appends up to MaxBackfill low interest items.
// The result is ordered by score, highest first, keeping input order
// among equal scores.
func SelectAndRank(relevances []models.ArticleRelevance, limits SelectionLimits) []models.ArticleRelevance {
	var selected []models.ArticleRelevance
	for _, r := range relevances {
		if len(selected) == limits.MaxPrimary {
			break
		}
		if r.Tier.Primary() {
			selected = append(selected, r)
		}
	}

	if len(selected) < limits.MinPrimary {
		added := 0
		for _, r := range relevances {
			if added == limits.MaxBackfill {
				break
			}
			if r.Tier == models.TierLowInterest {
				selected = append(selected, r)
				added++
			}
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].NewsValueScore > selected[j].NewsValueScore
	})
	return selected
}
