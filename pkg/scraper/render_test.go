package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/pkg/logging"
)

const renderedFrontPage = `<html><head></head><body>
	<div id="feed">
		<a href="/domestic/budget">Parliament approves the budget</a>
		<a href="/domestic/budget">Budget</a>
		<a href="javascript:void(0)">Load more stories</a>
	</div>
	<script>document.getElementById("feed").innerHTML += "..."</script>
</body></html>`

func TestRenderer_LinksFromRenderedDOM(t *testing.T) {
	var rendered string
	r := NewRendererWithFunc(func(_ context.Context, pageURL string) (string, error) {
		rendered = pageURL
		return renderedFrontPage, nil
	}, RendererConfig{Logger: logging.Discard()})

	links, err := r.Links(context.Background(), "https://news.example/")
	require.NoError(t, err)

	assert.Equal(t, "https://news.example/", rendered)
	assert.Equal(t, []models.Link{
		{Text: "Parliament approves the budget", URL: "https://news.example/domestic/budget"},
	}, links)
}

func TestRenderer_FallsBackToRawHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><a href="/storm">Storm closes the harbour</a></body></html>`))
	}))
	defer server.Close()

	r := NewRendererWithFunc(func(context.Context, string) (string, error) {
		return "", errors.New("chrome not found")
	}, RendererConfig{
		Fallback: NewWithConfig(ScraperConfig{RateLimit: 100, Logger: logging.Discard()}),
		Logger:   logging.Discard(),
	})

	links, err := r.Links(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []models.Link{{Text: "Storm closes the harbour", URL: server.URL + "/storm"}}, links)
}

func TestRenderer_ErrorWithoutFallback(t *testing.T) {
	r := NewRendererWithFunc(func(context.Context, string) (string, error) {
		return "", errors.New("chrome not found")
	}, RendererConfig{Logger: logging.Discard()})

	_, err := r.Links(context.Background(), "https://news.example/")
	assert.ErrorContains(t, err, "chrome not found")
}

func TestRenderer_CancelSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fallback := &countingSource{}
	r := NewRendererWithFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	}, RendererConfig{Fallback: fallback, Logger: logging.Discard()})

	_, err := r.Links(ctx, "https://news.example/")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.calls)
}

type countingSource struct {
	calls int
}

func (c *countingSource) Links(context.Context, string) ([]models.Link, error) {
	c.calls++
	return nil, nil
}
