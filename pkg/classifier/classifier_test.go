package classifier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xhad/newsbrief/internal/mocks"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/classifier"
	"github.com/xhad/newsbrief/pkg/logging"
)

func links(texts ...string) []models.Link {
	out := make([]models.Link, len(texts))
	for i, t := range texts {
		out[i] = models.Link{Text: t, URL: "https://example.com/" + t}
	}
	return out
}

func newClassifier(t *testing.T, chunkSize int) (*classifier.Classifier, *mocks.MockLinkClassifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	llm := mocks.NewMockLinkClassifier(ctrl)

	c := classifier.NewWithConfig(llm, classifier.ClassifierConfig{
		ChunkSize: chunkSize,
		Logger:    logging.Discard(),
	})
	return c, llm
}

func indices(items []models.ClassifiedItem) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Index
	}
	return out
}

func TestClassify_RemapsChunkIndices(t *testing.T) {
	c, llm := newClassifier(t, 2)
	ctx := context.Background()

	gomock.InOrder(
		llm.EXPECT().Classify(gomock.Any(), []string{"first", "second"}).
			Return([]models.ClassifiedItem{{Index: 1}}, nil),
		llm.EXPECT().Classify(gomock.Any(), []string{"third"}).
			Return([]models.ClassifiedItem{{Index: 0}}, nil),
	)

	res, err := c.Classify(ctx, links("first", "second", "third"))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, indices(res.Items))
	assert.Equal(t, 2, res.Chunks)
	assert.Zero(t, res.FailedChunks)
}

func TestClassify_GlobalIndexFormula(t *testing.T) {
	c, llm := newClassifier(t, 3)
	candidates := links("a1", "a2", "a3", "b1", "b2", "b3", "c1")

	llm.EXPECT().Classify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([]models.ClassifiedItem, error) {
			var out []models.ClassifiedItem
			for i := range texts {
				out = append(out, models.ClassifiedItem{Index: i})
			}
			return out, nil
		}).Times(3)

	res, err := c.Classify(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, indices(res.Items))
	for _, item := range res.Items {
		assert.GreaterOrEqual(t, item.Index, 0)
		assert.Less(t, item.Index, len(candidates))
	}
}

func TestClassify_FailedChunkIsIsolated(t *testing.T) {
	c, llm := newClassifier(t, 2)

	gomock.InOrder(
		llm.EXPECT().Classify(gomock.Any(), []string{"a", "b"}).
			Return(nil, errors.New("quota exceeded")),
		llm.EXPECT().Classify(gomock.Any(), []string{"c", "d"}).
			Return([]models.ClassifiedItem{{Index: 1, WhatHappened: "Something happened here"}}, nil),
	)

	res, err := c.Classify(context.Background(), links("a", "b", "c", "d"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.FailedChunks)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].Index)
	assert.Equal(t, "Something happened here", res.Items[0].WhatHappened)
}

func TestClassify_DropsOutOfRangeLocalIndex(t *testing.T) {
	c, llm := newClassifier(t, 2)

	llm.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return([]models.ClassifiedItem{{Index: 0}, {Index: 2}, {Index: -1}}, nil)

	res, err := c.Classify(context.Background(), links("a", "b"))
	require.NoError(t, err)

	assert.Equal(t, []int{0}, indices(res.Items))
	assert.Equal(t, 2, res.OutOfRange)
}

func TestClassify_CancelledContext(t *testing.T) {
	c, _ := newClassifier(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, links("a", "b", "c"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify_Empty(t *testing.T) {
	c, _ := newClassifier(t, 2)

	res, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Chunks)
}

func TestSelectCandidates(t *testing.T) {
	in := []models.Link{
		{Text: "bbbb", URL: "u1"},
		{Text: "aaaaaaa", URL: "u2"},
		{Text: "cccc", URL: "u3"},
		{Text: "dd", URL: "u4"},
	}

	got := classifier.SelectCandidates(in, 3)

	assert.Equal(t, []string{"u2", "u1", "u3"}, []string{got[0].URL, got[1].URL, got[2].URL})
	// input is left untouched
	assert.Equal(t, "u1", in[0].URL)
}

func TestSelectCandidates_NoCap(t *testing.T) {
	in := links("x", "yy", "zzz")

	got := classifier.SelectCandidates(in, 0)
	assert.Len(t, got, 3)
	assert.Equal(t, "zzz", got[0].Text)
}
