package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

var appName = "irctl"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := makeApp(ctx, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		stop()
		os.Exit(apperrors.ExitCode(err))
	}
}

func makeApp(ctx context.Context, out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "build and query the document index"
	app.Writer = out
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Value:  "configs/development.yaml",
			EnvVar: "IR_CONFIG",
			Usage:  "path to config file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "normalize every dataset and publish a new index generation",
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				return runBuild(ctx, cfg, out)
			},
		},
		{
			Name:      "search",
			Usage:     "query the current index",
			ArgsUsage: "<query>",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "top-k, k",
					Usage: "number of results to print (default from search.defaultTopK)",
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				return runSearch(ctx, cfg, out, strings.Join(c.Args(), " "), c.Int("top-k"))
			},
		},
	}
	return app
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func runBuild(ctx context.Context, cfg *config.Config, out io.Writer) error {
	norm, err := normalizer.New(cfg.Normalizer)
	if err != nil {
		return err
	}
	pipe, closePipeline, err := pipeline.FromConfig(ctx, cfg, norm, nil)
	if err != nil {
		return err
	}
	defer closePipeline()

	report, err := pipe.BuildIndex(ctx, cfg.Indexer)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "built generation %s (%s): %d documents, %d skipped\n",
		report.Generation, report.Backend, report.Documents, report.Skipped)
	return nil
}

func runSearch(ctx context.Context, cfg *config.Config, out io.Writer, query string, topK int) error {
	norm, err := normalizer.New(cfg.Normalizer)
	if err != nil {
		return err
	}
	searcher := executor.New(resolver.New(norm), ranker.New(cfg.Search), cfg.Search, nil, cfg.Tracing.Enabled)
	defer searcher.Close()
	if err := searcher.Reload(cfg.Indexer); err != nil {
		return err
	}

	result, err := searcher.Search(ctx, query, topK)
	if err != nil {
		return err
	}
	if len(result.Results) == 0 {
		fmt.Fprintln(out, "no results found")
		return nil
	}
	for i, doc := range result.Results {
		fmt.Fprintf(out, "%d. %s (score: %.4f)\n", i+1, doc.Title, doc.Score)
		fmt.Fprintf(out, "   Source: %s\n", doc.Source)
	}
	return nil
}
