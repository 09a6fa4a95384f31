package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	cfgPkg "github.com/xhad/newsbrief/pkg/config"
	"github.com/xhad/newsbrief/pkg/logging"
)

const exitInterrupted = 130

const usage = `Usage: newsbrief [-config path] <command> [flags]

Commands:
  collect    collect front page links, classify them and store articles
  extract    download article pages and store their markdown
  summarize  generate missing summaries
  embed      generate missing embeddings
  digest     build the personalized news digest
  pipeline   run every stage in order, optionally on an interval
  serve      serve articles, the digest and related articles over HTTP
  related    print the articles nearest to an article
`

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	fs := flag.NewFlagSet("newsbrief", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "Path to config file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := cfgPkg.LoadConfig(*configPath)
	if err != nil {
		color.Red("Error loading config: %v", err)
		return 1
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("Invalid config: %v", e)
		}
		return 1
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dispatch(ctx, cfg, logger, fs.Arg(0), fs.Args()[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		color.Yellow("\nInterrupted")
		return exitInterrupted
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	default:
		color.Red("Error: %v", err)
		return 1
	}
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, cfg *cfgPkg.Config, logger *slog.Logger, name string, args []string) error {
	commands := map[string]func(context.Context, *app, []string) error{
		"collect":   runCollect,
		"extract":   runExtract,
		"summarize": runSummarize,
		"embed":     runEmbed,
		"digest":    runDigest,
		"pipeline":  runPipeline,
		"serve":     runServe,
		"related":   runRelated,
	}

	cmd, ok := commands[name]
	if !ok {
		return errUsage
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd(ctx, a, args)
}
