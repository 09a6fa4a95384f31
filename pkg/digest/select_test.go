package digest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/digest"
)

func rel(id int64, tier models.RelevanceTier, score int) models.ArticleRelevance {
	return models.ArticleRelevance{ArticleID: id, Tier: tier, NewsValueScore: score}
}

func ids(rs []models.ArticleRelevance) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ArticleID
	}
	return out
}

func TestSelectAndRank_SortsByScoreStable(t *testing.T) {
	in := []models.ArticleRelevance{
		rel(1, models.TierHighInterest, 6),
		rel(2, models.TierEssential, 9),
		rel(3, models.TierUnnecessary, 10),
		rel(4, models.TierHighInterest, 9),
		rel(5, models.TierEssential, 7),
		rel(6, models.TierHighInterest, 6),
	}

	got := digest.SelectAndRank(in, digest.DefaultLimits)
	assert.Equal(t, []int64{2, 4, 5, 1, 6}, ids(got))
}

func TestSelectAndRank_CapsPrimary(t *testing.T) {
	var in []models.ArticleRelevance
	for i := int64(1); i <= 20; i++ {
		in = append(in, rel(i, models.TierEssential, 5))
	}
	in = append(in, rel(99, models.TierLowInterest, 10))

	got := digest.SelectAndRank(in, digest.DefaultLimits)
	assert.Len(t, got, 15)
	assert.Equal(t, int64(1), got[0].ArticleID)
	assert.NotContains(t, ids(got), int64(99))
}

func TestSelectAndRank_BackfillsLowInterest(t *testing.T) {
	in := []models.ArticleRelevance{
		rel(1, models.TierEssential, 4),
		rel(2, models.TierHighInterest, 6),
	}
	for i := int64(10); i < 22; i++ {
		in = append(in, rel(i, models.TierLowInterest, 5))
	}

	got := digest.SelectAndRank(in, digest.DefaultLimits)
	assert.Len(t, got, 12)
	assert.Equal(t, int64(2), got[0].ArticleID)
	assert.Equal(t, int64(1), got[len(got)-1].ArticleID)
	// backfill keeps its input order among equal scores
	assert.Equal(t, int64(10), got[1].ArticleID)
	assert.Equal(t, int64(19), got[10].ArticleID)
}

func TestSelectAndRank_NoBackfillWhenEnoughPrimary(t *testing.T) {
	in := []models.ArticleRelevance{
		rel(1, models.TierEssential, 5),
		rel(2, models.TierEssential, 5),
		rel(3, models.TierEssential, 5),
		rel(4, models.TierEssential, 5),
		rel(5, models.TierEssential, 5),
		rel(6, models.TierLowInterest, 9),
	}

	got := digest.SelectAndRank(in, digest.DefaultLimits)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(got))
}

func TestSelectAndRank_Bounds(t *testing.T) {
	tiers := []models.RelevanceTier{
		models.TierEssential, models.TierHighInterest, models.TierLowInterest,
		models.TierUnnecessary, models.TierUnknown,
	}
	for n := 0; n < 60; n++ {
		var in []models.ArticleRelevance
		for i := 0; i < n; i++ {
			in = append(in, rel(int64(i), tiers[(i*7+n)%len(tiers)], (i*3)%10+1))
		}
		got := digest.SelectAndRank(in, digest.DefaultLimits)
		assert.LessOrEqual(t, len(got), 25)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].NewsValueScore, got[i].NewsValueScore)
		}
	}
}

func TestSelectAndRank_Empty(t *testing.T) {
	assert.Empty(t, digest.SelectAndRank(nil, digest.DefaultLimits))
	assert.Empty(t, digest.SelectAndRank([]models.ArticleRelevance{
		rel(1, models.TierUnnecessary, 8),
	}, digest.DefaultLimits))
}
