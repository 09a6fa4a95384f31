package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/newsbrief/internal/models"
)

func TestCategories_RoundTrip(t *testing.T) {
	c := models.CategoriesFromItem(models.ClassifiedItem{
		Index:        3,
		WhatHappened: "Parliament passed the budget",
		ImpactOn:     "taxpayers",
		Countries:    []string{"Česko"},
	})

	s, err := c.Marshal()
	require.NoError(t, err)
	assert.Contains(t, s, `"v":1`)
	assert.Contains(t, s, `"people":[]`)

	got, err := models.ParseCategories(s)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestParseCategories_Legacy(t *testing.T) {
	got, err := models.ParseCategories(`{"countries":["USA"],"people":["Joe Biden"]}`)
	require.NoError(t, err)
	assert.Zero(t, got.Version)
	assert.Equal(t, []string{"USA"}, got.Countries)
	assert.Equal(t, []string{"Joe Biden"}, got.People)
}

func TestParseCategories_Errors(t *testing.T) {
	_, err := models.ParseCategories(`{"v":2,"countries":[]}`)
	assert.Error(t, err)

	_, err = models.ParseCategories(`not json`)
	assert.Error(t, err)

	got, err := models.ParseCategories("")
	require.NoError(t, err)
	assert.Equal(t, models.Categories{}, got)
}

func TestRelevanceTier(t *testing.T) {
	tests := []struct {
		label   string
		tier    models.RelevanceTier
		primary bool
	}{
		{"Nezbytné", models.TierEssential, true},
		{"Velmi zajímavé", models.TierHighInterest, true},
		{"Málo zajímavé", models.TierLowInterest, false},
		{"Nezajímavé", models.TierUnnecessary, false},
		{"Essential", models.TierUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			tier := models.ParseTier(tt.label)
			assert.Equal(t, tt.tier, tier)
			assert.Equal(t, tt.primary, tier.Primary())
			if tier != models.TierUnknown {
				assert.Equal(t, tt.label, tier.String())
			}
		})
	}
}

func TestArticle_Flags(t *testing.T) {
	empty := ""
	body := "body"

	assert.True(t, models.Article{URL: models.DigestURL}.IsDigest())
	assert.False(t, models.Article{Content: &empty}.HasContent())
	assert.True(t, models.Article{Content: &body}.HasContent())
	assert.False(t, models.Article{}.HasSummary())
	assert.True(t, models.Article{Embedding: []float32{1}}.HasEmbedding())
}
