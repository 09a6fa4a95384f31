package digest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/digest"
)

var batch = map[int64]bool{1: true, 2: true}

func TestParseRelevances_CodeFence(t *testing.T) {
	answer := "```json\n[{\"article_id\":1,\"relevance\":\"Nezbytné\",\"news_value_score\":9,\"news_values\":[\"Dopad\"],\"country\":\"Česko\",\"reasoning\":\"r\"}]\n```"

	got, err := digest.ParseRelevances(answer, batch)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, int64(1), got[0].ArticleID)
	assert.Equal(t, models.TierEssential, got[0].Tier)
	assert.Equal(t, 9, got[0].NewsValueScore)
	assert.Equal(t, "Česko", got[0].Country)
	assert.Equal(t, "", got[0].Person)
}

func TestParseRelevances_Defaults(t *testing.T) {
	got, err := digest.ParseRelevances(
		`[{"article_id":2,"relevance":"Málo zajímavé","news_values":[],"reasoning":"r"}]`, batch)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].NewsValueScore)
	assert.Equal(t, models.TierLowInterest, got[0].Tier)
}

func TestParseRelevances_ClampsScore(t *testing.T) {
	got, err := digest.ParseRelevances(`[
		{"article_id":1,"relevance":"Nezbytné","news_value_score":14,"news_values":[],"reasoning":"r"},
		{"article_id":2,"relevance":"Nezbytné","news_value_score":0,"news_values":[],"reasoning":"r"}
	]`, batch)
	require.NoError(t, err)
	assert.Equal(t, 10, got[0].NewsValueScore)
	assert.Equal(t, 1, got[1].NewsValueScore)
}

func TestParseRelevances_DropsForeignIDs(t *testing.T) {
	got, err := digest.ParseRelevances(
		`[{"article_id":77,"relevance":"Nezbytné","news_values":[],"reasoning":"r"}]`, batch)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseRelevances_Failures(t *testing.T) {
	tests := map[string]string{
		"not json":          "Here are the results!",
		"object not array":  `{"article_id":1}`,
		"missing reasoning": `[{"article_id":1,"relevance":"Nezbytné","news_values":[]}]`,
		"missing id":        `[{"relevance":"Nezbytné","news_values":[],"reasoning":"r"}]`,
	}
	for name, answer := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := digest.ParseRelevances(answer, batch)
			assert.ErrorIs(t, err, digest.ErrParse)
		})
	}
}

func TestParseRelevances_UnknownTier(t *testing.T) {
	got, err := digest.ParseRelevances(
		`[{"article_id":1,"relevance":"Super","news_values":[],"reasoning":"r"}]`, batch)
	require.NoError(t, err)
	assert.Equal(t, models.TierUnknown, got[0].Tier)
}
