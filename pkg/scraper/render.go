package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/xhad/newsbrief/internal/models"
	"github.com/xhad/newsbrief/internal/types"
)

var _ types.LinkSource = (*Renderer)(nil)

// RenderFunc loads pageURL and returns the outer HTML of the document after
// its scripts ran.
type RenderFunc func(ctx context.Context, pageURL string) (string, error)

type RendererConfig struct {
	Timeout time.Duration
	// Wait is how long scripts get after the body is ready.
	Wait          time.Duration
	UserAgent     string
	ExecPath      string // Chrome binary; empty searches the usual locations
	MinTextLength int
	// Fallback serves Links when the browser cannot render the page.
	Fallback types.LinkSource
	Logger   *slog.Logger
}

// Renderer collects links from the DOM of a page rendered by headless
// Chrome, so anchors inserted by scripts are seen.
type Renderer struct {
	config RendererConfig
	render RenderFunc
	logger *slog.Logger
}

func NewRenderer(config RendererConfig) *Renderer {
	config = rendererDefaults(config)
	r := &Renderer{
		config: config,
		logger: config.Logger.With("component", "renderer"),
	}
	r.render = r.chrome
	return r
}

// NewRendererWithFunc builds a Renderer on a custom render function.
func NewRendererWithFunc(render RenderFunc, config RendererConfig) *Renderer {
	config = rendererDefaults(config)
	return &Renderer{
		config: config,
		render: render,
		logger: config.Logger.With("component", "renderer"),
	}
}

func rendererDefaults(config RendererConfig) RendererConfig {
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}
	if config.Wait == 0 {
		config.Wait = 2 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "newsbrief/1.0"
	}
	if config.MinTextLength == 0 {
		config.MinTextLength = DefaultMinTextLength
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return config
}

// Links renders pageURL and returns its deduplicated article candidates.
func (r *Renderer) Links(ctx context.Context, pageURL string) ([]models.Link, error) {
	const op = "scraper.Renderer.Links"

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	html, err := r.render(ctx, pageURL)
	if err != nil {
		if r.config.Fallback != nil && ctx.Err() == nil {
			r.logger.Warn("render failed, fetching raw HTML", "url", pageURL, "error", err)
			return r.config.Fallback.Links(ctx, pageURL)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw := collectAnchors(doc, base, r.logger)
	links := DedupeLinks(raw, r.config.MinTextLength)
	r.logger.Info("links collected", "url", pageURL, "raw", len(raw), "unique", len(links), "rendered", true)

	return links, nil
}

func (r *Renderer) chrome(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(r.config.UserAgent))
	if r.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.config.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, r.config.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.config.Wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
