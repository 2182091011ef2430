// Command blog-harvester pulls the configured blog feeds, translates article
// metadata and publishes the storefront blog document.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/minicomputer-shop/blog-harvester/internal/config"
	"github.com/minicomputer-shop/blog-harvester/internal/crawler"
	"github.com/minicomputer-shop/blog-harvester/internal/curate"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/internal/markup"
	"github.com/minicomputer-shop/blog-harvester/internal/pipeline"
	"github.com/minicomputer-shop/blog-harvester/internal/translate"
	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
	"github.com/minicomputer-shop/blog-harvester/pkg/providers"
	"github.com/minicomputer-shop/blog-harvester/pkg/publishers"
)

// enrichDelay spaces out article page requests of the image enricher.
const enrichDelay = 200 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional
	_ = godotenv.Load()

	fs := config.NewFlagSet("blog-harvester")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	sink, err := buildSink(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to build publishers", "startup_failed", map[string]any{"error": err.Error()})
		return 1
	}
	defer sink.Close()

	var cache translate.Cache
	if cfg.Translate.CachePath != "" {
		bolt, err := translate.OpenBoltCache(cfg.Translate.CachePath)
		if err != nil {
			log.ErrorObj("failed to open translation cache", "startup_failed", map[string]any{"error": err.Error()})
			return 1
		}
		defer bolt.Close()
		cache = bolt
	}

	targets := cfg.TargetLanguages()
	translator := translate.New(
		translate.NewGoogleService(httpclient.NewRestyClient(cfg.Translate.Timeout), cfg.Translate.Endpoint, cfg.UserAgent),
		cache,
		log,
		translate.Options{
			SourceLanguage: cfg.Translate.SourceLanguage,
			Languages:      targets,
			ChunkLimit:     cfg.Translate.ChunkLimit,
			MaxChunks:      cfg.Translate.MaxChunks,
			ExcerptLimit:   cfg.Translate.ExcerptLimit,
			Retry: translate.RetryPolicy{
				MaxAttempts: cfg.Translate.MaxAttempts,
				Backoff:     translate.LinearBackoff(cfg.Translate.Backoff),
			},
			Delay:  cfg.Translate.Delay,
			Jitter: cfg.Translate.Jitter,
		},
	)

	fetchClient := httpclient.NewRestyClient(cfg.Fetch.Timeout)
	harvester := crawler.NewHarvester(
		providers.DefaultFetcherRegistry(fetchClient, cfg.UserAgent),
		markup.NewExtractor(cfg.Markup.BodyLimit, cfg.Markup.ExcerptLimit),
		log,
		crawler.Options{
			Workers:        cfg.Fetch.Workers,
			PerSourceLimit: cfg.Fetch.PerSourceLimit,
			FetchTimeout:   cfg.Fetch.Timeout,
			SourceLanguage: cfg.Translate.SourceLanguage,
		},
	)

	var enricher pipeline.Enricher
	if cfg.Fetch.EnrichImages {
		enricher = crawler.NewImageEnricher(fetchClient, log, cfg.UserAgent, enrichDelay)
	}

	p := pipeline.New(harvester, enricher, translator, sink, log, pipeline.Options{
		Sources:        cfg.Feeds,
		SourceLanguage: cfg.Translate.SourceLanguage,
		Languages:      targets,
		Curate: curate.Options{
			MaxArticles:    cfg.Curate.MaxArticles,
			HalfWindow:     cfg.Curate.HalfWindow,
			SourceLanguage: cfg.Translate.SourceLanguage,
		},
	})

	if cfg.TranslateOnly {
		_, err = p.TranslateOnly(ctx)
	} else {
		_, err = p.Run(ctx)
	}
	if err != nil {
		return 1
	}
	return 0
}

func buildSink(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Sink, error) {
	cfgs := publishers.FileConfigs(cfg.Publish.Outputs)
	if cfg.Publish.PublishersFile != "" {
		reg, err := publishers.LoadRegistry(cfg.Publish.PublishersFile)
		if err != nil {
			return nil, err
		}
		cfgs = reg.Enabled()
	}
	return publishers.BuildSink(ctx, publishers.DefaultRegistry(), cfgs, log)
}
