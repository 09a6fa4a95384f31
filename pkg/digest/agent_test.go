package digest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xhad/newsbrief/internal/mocks"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/digest"
	"github.com/xhad/newsbrief/pkg/logging"
)

var fixedNow = time.Date(2025, 3, 14, 8, 5, 0, 0, time.Local)

type fixture struct {
	store *mocks.MockDigestStore
	llm   *mocks.MockTextGenerator
	pub   *mocks.MockPublisher
	agent *digest.Agent
}

func newFixture(t *testing.T, batchSize int) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		store: mocks.NewMockDigestStore(ctrl),
		llm:   mocks.NewMockTextGenerator(ctrl),
		pub:   mocks.NewMockPublisher(ctrl),
	}
	f.agent = digest.NewWithConfig(f.store, f.llm, f.pub, digest.AgentConfig{
		BatchSize: batchSize,
		Logger:    logging.Discard(),
		Now:       func() time.Time { return fixedNow },
	})
	return f
}

func summarized(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		s := fmt.Sprintf("summary %d", i+1)
		out[i] = models.Article{ID: int64(i + 1), Title: fmt.Sprintf("Article %d", i+1), SummarySimple: &s}
	}
	return out
}

func isCategorize(prompt string) bool {
	return strings.Contains(prompt, "Articles to evaluate:")
}

func TestRun_NoArticlesNoWrite(t *testing.T) {
	f := newFixture(t, 20)
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(nil, nil)

	res, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Zero(t, res.Articles)
}

func TestRun_FencedAnswerProducesDigest(t *testing.T) {
	f := newFixture(t, 20)
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(summarized(2), nil)

	gomock.InOrder(
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), 0.3).
			DoAndReturn(func(_ context.Context, prompt string, _ float64) (string, error) {
				assert.True(t, isCategorize(prompt))
				assert.Contains(t, prompt, "Uživatel je čech")
				assert.Contains(t, prompt, `"summary": "summary 2"`)
				return "```json\n[" +
					`{"article_id":1,"relevance":"Velmi zajímavé","news_value_score":6,"news_values":["Dopad"],"reasoning":"r"},` +
					`{"article_id":2,"relevance":"Nezbytné","news_value_score":9,"news_values":["Blízkost"],"country":"Česko","reasoning":"r"}` +
					"]\n```", nil
			}),
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), 0.3).
			DoAndReturn(func(_ context.Context, prompt string, _ float64) (string, error) {
				assert.Contains(t, prompt, "Napiš přehled v češtině")
				assert.Less(t, strings.Index(prompt, "Article 2"), strings.Index(prompt, "Article 1"))
				return "  Česko řeší rozpočet.  ", nil
			}),
	)

	f.store.EXPECT().UpsertDigest(gomock.Any(), "Přehled zpráv - 2025-03-14 08:05", "Česko řeší rozpočet.", fixedNow).
		Return(models.Article{ID: 42, URL: models.DigestURL, Title: "Přehled zpráv - 2025-03-14 08:05"}, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.Event) error {
			assert.Equal(t, models.EventDigestUpdated, e.Type)
			assert.Equal(t, int64(42), e.ArticleID)
			return nil
		})

	res, err := f.agent.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Written)
	assert.Equal(t, 2, res.Categorized)
	require.Len(t, res.Ranked, 2)
	assert.Equal(t, int64(2), res.Ranked[0].Article.ID)
	assert.Equal(t, "Česko řeší rozpočet.", res.Narrative)
}

func TestRun_DroppedBatchDoesNotStopRun(t *testing.T) {
	f := newFixture(t, 2)
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(summarized(3), nil)

	gomock.InOrder(
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("I cannot answer that.", nil),
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(`[{"article_id":3,"relevance":"Nezbytné","news_value_score":8,"news_values":[],"reasoning":"r"}]`, nil),
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("Přehled.", nil),
	)
	f.store.EXPECT().UpsertDigest(gomock.Any(), gomock.Any(), "Přehled.", gomock.Any()).
		Return(models.Article{ID: 9}, nil)
	f.pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.DroppedBatches)
	assert.Equal(t, 1, res.Categorized)
	assert.True(t, res.Written)
}

func TestRun_EmptySelectionNoWrite(t *testing.T) {
	f := newFixture(t, 20)
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(summarized(1), nil)
	f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(`[{"article_id":1,"relevance":"Nezajímavé","news_values":[],"reasoning":"r"}]`, nil)

	res, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Empty(t, res.Ranked)
}

func TestRun_ZeroTemperature(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDigestStore(ctrl)
	llm := mocks.NewMockTextGenerator(ctrl)

	zero := 0.0
	agent := digest.NewWithConfig(store, llm, nil, digest.AgentConfig{
		Temperature: &zero,
		Logger:      logging.Discard(),
	})

	store.EXPECT().ListSummarized(gomock.Any()).Return(summarized(1), nil)
	llm.EXPECT().Generate(gomock.Any(), gomock.Any(), 0.0).
		Return(`[{"article_id":1,"relevance":"Nezajímavé","news_values":[],"reasoning":"r"}]`, nil)

	res, err := agent.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Written)
}

func TestRun_NarrativeFailureIsFatal(t *testing.T) {
	f := newFixture(t, 20)
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(summarized(1), nil)

	gomock.InOrder(
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(`[{"article_id":1,"relevance":"Nezbytné","news_values":[],"reasoning":"r"}]`, nil),
		f.llm.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("   ", nil),
	)

	res, err := f.agent.Run(context.Background())
	assert.ErrorIs(t, err, digest.ErrEmptyNarrative)
	assert.Contains(t, err.Error(), "generate_narrative")
	assert.False(t, res.Written)
}

func TestRun_StoreFailure(t *testing.T) {
	f := newFixture(t, 20)
	boom := errors.New("db down")
	f.store.EXPECT().ListSummarized(gomock.Any()).Return(nil, boom)

	_, err := f.agent.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch_summarized")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Přehled zpráv - 2025-03-14 08:05", digest.Title(fixedNow))
}
