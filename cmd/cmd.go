package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/xhad/newsbrief/internal/types"
	"github.com/xhad/newsbrief/pkg/classifier"
	cfgPkg "github.com/xhad/newsbrief/pkg/config"
	"github.com/xhad/newsbrief/pkg/digest"
	"github.com/xhad/newsbrief/pkg/enrich"
	"github.com/xhad/newsbrief/pkg/events"
	"github.com/xhad/newsbrief/pkg/extractor"
	"github.com/xhad/newsbrief/pkg/ingest"
	"github.com/xhad/newsbrief/pkg/llm"
	"github.com/xhad/newsbrief/pkg/logging"
	"github.com/xhad/newsbrief/pkg/scheduler"
	"github.com/xhad/newsbrief/pkg/scraper"
	"github.com/xhad/newsbrief/pkg/store"
	"github.com/xhad/newsbrief/server"
)

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg       *cfgPkg.Config
	logger    *slog.Logger
	store     *store.ArticleStore
	publisher types.Publisher
}

func newApp(ctx context.Context, cfg *cfgPkg.Config, logger *slog.Logger) (*app, error) {
	st, err := store.NewWithConfig(ctx, store.ArticleStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		Lists:      cfg.Database.Lists,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize article store: %w", err)
	}

	var pub types.Publisher = events.Noop{}
	if cfg.Events.Enabled {
		pub, err = events.NewRabbitMQ(events.Config{
			URL:        cfg.Events.URL,
			Exchange:   cfg.Events.Exchange,
			RoutingKey: cfg.Events.RoutingKey,
			QueueName:  cfg.Events.QueueName,
		}, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
		}
	}

	return &app{cfg: cfg, logger: logger, store: st, publisher: pub}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close publisher", "error", err)
	}
	a.store.Close()
}

func (a *app) scraper() *scraper.Scraper {
	return scraper.NewWithConfig(scraper.ScraperConfig{
		RateLimit: a.cfg.Collector.RateLimit,
		Timeout:   a.cfg.Collector.Timeout,
		UserAgent: a.cfg.Collector.UserAgent,
		Logger:    a.logger,
	})
}

// linkSource renders the front page in headless Chrome unless the config
// asks for raw HTML. The plain scraper stays as the fallback.
func (a *app) linkSource() types.LinkSource {
	if a.cfg.Collector.Render == "http" {
		return a.scraper()
	}
	return scraper.NewRenderer(scraper.RendererConfig{
		Timeout:   a.cfg.Collector.Timeout,
		Wait:      a.cfg.Collector.RenderWait,
		UserAgent: a.cfg.Collector.UserAgent,
		ExecPath:  a.cfg.Collector.BrowserPath,
		Fallback:  a.scraper(),
		Logger:    a.logger,
	})
}

func (a *app) chat() (*llm.ChatEngine, error) {
	return llm.NewWithConfig(llm.ChatConfig{
		Model:     a.cfg.LLM.Model,
		MaxTokens: a.cfg.LLM.MaxTokens,
		BaseURL:   a.cfg.LLM.BaseURL,
		Timeout:   a.cfg.LLM.Timeout,
	})
}

// runLogger tags everything logged during one command run.
func runLogger(ctx context.Context, a *app) (context.Context, *slog.Logger) {
	l := logging.From(ctx)
	if l == slog.Default() {
		l = a.logger.With("run_id", uuid.NewString())
	}
	return logging.Into(ctx, l), l
}

func runCollect(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	target := fs.String("url", a.cfg.Collector.TargetURL, "Front page to collect links from")
	mode := fs.String("mode", a.cfg.Collector.WriteMode, "Write mode: replace or upsert")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return collect(ctx, a, *target, ingest.Mode(*mode))
}

func collect(ctx context.Context, a *app, target string, mode ingest.Mode) error {
	ctx, logger := runLogger(ctx, a)
	color.Blue("\nCollecting links from %s", target)

	spinner := getSpinner("Fetching front page...")
	links, err := a.linkSource().Links(ctx, target)
	_ = spinner.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	color.Green("✓ Found %d links", len(links))

	engine, err := llm.NewClassifierWithConfig(llm.ClassifierConfig{
		Model:   a.cfg.LLM.Model,
		BaseURL: a.cfg.LLM.BaseURL,
		Timeout: a.cfg.LLM.Timeout,
	})
	if err != nil {
		return err
	}

	c := classifier.NewWithConfig(engine, classifier.ClassifierConfig{
		ChunkSize:     a.cfg.Classifier.ChunkSize,
		MaxCandidates: a.cfg.Classifier.MaxCandidates,
		Logger:        logger,
	})
	candidates := c.Candidates(links)

	spinner = getSpinner(fmt.Sprintf("Classifying %d candidates...", len(candidates)))
	res, err := c.Classify(ctx, candidates)
	_ = spinner.Finish()
	fmt.Println()
	if err != nil {
		return err
	}
	color.Green("✓ Selected %d news items (%d of %d chunks failed)", len(res.Items), res.FailedChunks, res.Chunks)

	w := ingest.NewWithConfig(a.store, a.publisher, ingest.WriterConfig{Mode: mode, Logger: logger})
	wr, err := w.Write(ctx, candidates, res.Items)
	if err != nil {
		return err
	}
	color.Green("✓ Stored %d articles (%s)", wr.Written, mode)
	if mode == ingest.ModeReplace && wr.Deleted > 0 {
		color.Yellow("  %d previous articles were replaced", wr.Deleted)
	}
	return nil
}

func runExtract(ctx context.Context, a *app, _ []string) error {
	ctx, logger := runLogger(ctx, a)
	update, finish := progress("Extracting content...")

	ex := extractor.NewWithConfig(a.store, a.scraper(), extractor.ExtractorConfig{
		MinContentLength: a.cfg.Extractor.MinContentLength,
		Logger:           logger,
		Progress:         update,
	})
	stats, err := ex.Run(ctx)
	finish()
	printStats("Extract", stats.Total, stats.Succeeded, 0, stats.Failed)
	return err
}

func (a *app) generator(logger *slog.Logger, progress func(done, total int)) (*enrich.Generator, error) {
	chat, err := a.chat()
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:      a.cfg.Embedding.Model,
		BaseURL:    a.cfg.LLM.BaseURL,
		Dimensions: a.cfg.Database.VectorDim,
	})
	if err != nil {
		return nil, err
	}

	return enrich.NewWithConfig(a.store, a.store, chat, embedder, enrich.GeneratorConfig{
		ExcerptChars: a.cfg.Enrich.ExcerptChars,
		Interval:     a.cfg.Enrich.Delay,
		Temperature:  a.cfg.LLM.Temperature,
		Dimensions:   a.cfg.Database.VectorDim,
		Logger:       logger,
		Progress:     progress,
	}), nil
}

func runSummarize(ctx context.Context, a *app, _ []string) error {
	ctx, logger := runLogger(ctx, a)
	update, finish := progress("Summarizing...")

	g, err := a.generator(logger, update)
	if err != nil {
		return err
	}
	stats, err := g.Summarize(ctx)
	finish()
	printStats("Summaries", stats.Total, stats.Processed, stats.Skipped, stats.Failed)
	return err
}

func runEmbed(ctx context.Context, a *app, _ []string) error {
	ctx, logger := runLogger(ctx, a)
	update, finish := progress("Embedding...")

	g, err := a.generator(logger, update)
	if err != nil {
		return err
	}
	stats, err := g.Embed(ctx)
	finish()
	printStats("Embeddings", stats.Total, stats.Processed, stats.Skipped, stats.Failed)
	return err
}

func runDigest(ctx context.Context, a *app, _ []string) error {
	ctx, logger := runLogger(ctx, a)

	chat, err := a.chat()
	if err != nil {
		return err
	}

	d := a.cfg.Digest
	agent := digest.NewWithConfig(a.store, chat, a.publisher, digest.AgentConfig{
		BatchSize: d.BatchSize,
		Limits: digest.SelectionLimits{
			MaxPrimary:  d.MaxPrimary,
			MinPrimary:  d.MinPrimary,
			MaxBackfill: d.MaxBackfill,
		},
		Temperature: d.Temperature,
		UserProfile: d.UserProfile,
		NewsValues:  d.NewsValues,
		Logger:      logger,
	})

	spinner := getSpinner("Building digest...")
	res, err := agent.Run(ctx)
	_ = spinner.Finish()
	fmt.Println()
	if err != nil {
		return err
	}

	if !res.Written {
		color.Yellow("No digest written: %d summarized articles, %d selected", res.Articles, len(res.Ranked))
		return nil
	}

	printRanked(res.Ranked)
	color.Cyan("%s", res.Digest.Title)
	fmt.Println(res.Narrative)
	if res.DroppedBatches > 0 {
		color.Yellow("\n%d categorization batches were dropped", res.DroppedBatches)
	}
	return nil
}

func runPipeline(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	interval := fs.Duration("interval", a.cfg.Scheduler.Interval, "Repeat the pipeline on this interval")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	run := scheduler.RunnerFunc(func(ctx context.Context) error {
		return pipeline(ctx, a)
	})

	if *interval <= 0 {
		return run(ctx)
	}
	return scheduler.NewScheduler(run, *interval, a.cfg.Scheduler.RunTimeout, a.logger).Start(ctx)
}

// pipeline runs every stage once, in order, stopping at the first error.
func pipeline(ctx context.Context, a *app) error {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"collect", func(ctx context.Context) error {
			return collect(ctx, a, a.cfg.Collector.TargetURL, ingest.Mode(a.cfg.Collector.WriteMode))
		}},
		{"extract", func(ctx context.Context) error { return runExtract(ctx, a, nil) }},
		{"summarize", func(ctx context.Context) error { return runSummarize(ctx, a, nil) }},
		{"embed", func(ctx context.Context) error { return runEmbed(ctx, a, nil) }},
		{"digest", func(ctx context.Context) error { return runDigest(ctx, a, nil) }},
	}

	ctx, logger := runLogger(ctx, a)
	start := time.Now()
	for _, s := range stages {
		logger.Info("stage started", "stage", s.name)
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	logger.Info("pipeline finished", "elapsed", time.Since(start))
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	srv := server.New(a.store, server.Config{
		Addr:     *addr,
		RelatedK: a.cfg.Server.RelatedK,
		Logger:   a.logger,
	})
	color.Blue("Serving on %s", *addr)
	return srv.ListenAndServe(ctx)
}

func runRelated(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("related", flag.ContinueOnError)
	k := fs.Int("k", a.cfg.Server.RelatedK, "Number of related articles")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid article id %q", fs.Arg(0))
	}

	article, err := a.store.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	related, err := a.store.Related(ctx, id, *k)
	if err != nil {
		return err
	}

	color.Cyan("Related to %d: %s", article.ID, article.Title)
	if len(related) == 0 {
		color.Yellow("  no related articles (missing embedding?)")
		return nil
	}
	printArticles(related)
	return nil
}
