// Package pipeline runs one harvest: fetch, curate, translate and publish a
// single blog document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/crawler"
	"github.com/minicomputer-shop/blog-harvester/internal/curate"
	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/internal/translate"
	"github.com/minicomputer-shop/blog-harvester/pkg/publishers"
)

const defaultPublishTimeout = 30 * time.Second

var (
	// ErrDeadlineExceeded reports a run that hit its global deadline. The
	// partial document has still been handed to the sink.
	ErrDeadlineExceeded = errors.New("run deadline exceeded")
	// ErrInterrupted reports a run cancelled before it finished.
	ErrInterrupted = errors.New("run interrupted")
)

// Harvester fetches every source.
type Harvester interface {
	Harvest(ctx context.Context, sources []domain.FeedSource) crawler.Result
}

// Enricher fills in missing article data after fetching.
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Translator fills the target language slots of articles.
type Translator interface {
	TranslateAll(ctx context.Context, articles, prior []domain.Article, progress translate.ProgressFunc) (translate.Stats, error)
}

// Sink publishes documents.
type Sink interface {
	Publish(ctx context.Context, doc domain.OutputDocument) (publishers.Report, error)
	Checkpoint(ctx context.Context, doc domain.OutputDocument)
	LoadPrimary(ctx context.Context) (*domain.OutputDocument, error)
}

// Options configures a Pipeline.
type Options struct {
	Sources        []domain.FeedSource
	SourceLanguage string
	Languages      []string
	Curate         curate.Options
	// PublishTimeout bounds the publish that follows an expired run context.
	PublishTimeout time.Duration
	Now            func() time.Time
}

// Summary aggregates one run.
type Summary struct {
	Sources            int
	FailedSources      int
	Fetched            int
	Articles           int
	Translation        translate.Stats
	Destinations       int
	FailedDestinations int
	Partial            bool
	Duration           time.Duration
}

// Pipeline wires the stages of a run together.
type Pipeline struct {
	harvester  Harvester
	enricher   Enricher
	translator Translator
	sink       Sink
	log        logger.Logger
	opts       Options
}

// New builds a Pipeline. enricher may be nil.
func New(h Harvester, e Enricher, t Translator, s Sink, log logger.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	if opts.Curate.SourceLanguage == "" {
		opts.Curate.SourceLanguage = opts.SourceLanguage
	}
	return &Pipeline{harvester: h, enricher: e, translator: t, sink: s, log: log, opts: opts}
}

// Run performs a full harvest and publishes the resulting document.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.opts.Now()
	summary := Summary{Sources: len(p.opts.Sources)}

	p.log.InfoObj("harvest started", "phase_fetch", map[string]any{
		"sources": len(p.opts.Sources),
	})
	res := p.harvester.Harvest(ctx, p.opts.Sources)
	for _, src := range res.Sources {
		if src.Err != nil {
			summary.FailedSources++
		}
	}
	summary.Fetched = len(res.Articles)

	articles := res.Articles
	if p.enricher != nil && ctx.Err() == nil {
		articles = p.enricher.Enrich(ctx, articles)
	}

	curated := curate.Curate(articles, start, p.opts.Curate)
	p.log.InfoObj("articles curated", "phase_curate", map[string]any{
		"fetched":  len(res.Articles),
		"articles": len(curated),
	})

	prior := p.loadPrior(ctx)
	doc := domain.OutputDocument{Generated: start.UTC(), Articles: curated}
	return p.translateAndPublish(ctx, doc, prior, summary, start)
}

// TranslateOnly reloads the document held by the primary destination, fills
// its translation gaps and publishes it again without fetching.
func (p *Pipeline) TranslateOnly(ctx context.Context) (Summary, error) {
	start := p.opts.Now()

	prior, err := p.sink.LoadPrimary(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load published document: %w", err)
	}
	p.log.InfoObj("published document loaded", "phase_load", map[string]any{
		"articles": len(prior.Articles),
	})

	doc := domain.OutputDocument{Generated: prior.Generated, Articles: cloneArticles(prior.Articles)}
	return p.translateAndPublish(ctx, doc, prior.Articles, Summary{}, start)
}

func (p *Pipeline) loadPrior(ctx context.Context) []domain.Article {
	prior, err := p.sink.LoadPrimary(ctx)
	switch {
	case err == nil:
		return prior.Articles
	case errors.Is(err, os.ErrNotExist), errors.Is(err, publishers.ErrPrimaryNotReadable):
		p.log.DebugObj("no previous document", "prior_document_missing", map[string]any{"reason": err.Error()})
	default:
		p.log.WarnObj("previous document unreadable, translating everything", "prior_document_failed", map[string]any{
			"error": err.Error(),
		})
	}
	return nil
}

func (p *Pipeline) translateAndPublish(ctx context.Context, doc domain.OutputDocument, prior []domain.Article, summary Summary, start time.Time) (Summary, error) {
	summary.Articles = len(doc.Articles)

	p.log.InfoObj("translation started", "phase_translate", map[string]any{
		"articles":  len(doc.Articles),
		"languages": p.opts.Languages,
	})
	progress := func(done, total int, a domain.Article) {
		p.log.InfoObj("article translated", "translate_progress", map[string]any{
			"done":  done,
			"total": total,
			"id":    a.ID,
		})
		if ctx.Err() == nil {
			p.sink.Checkpoint(ctx, p.snapshot(doc))
		}
	}
	stats, terr := p.translator.TranslateAll(ctx, doc.Articles, prior, progress)
	summary.Translation = stats

	runErr := p.stopReason(ctx, terr)
	pubCtx := ctx
	if runErr != nil {
		summary.Partial = true
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), p.opts.PublishTimeout)
		defer cancel()
	}

	report, perr := p.sink.Publish(pubCtx, doc)
	summary.Destinations = len(report.Results)
	summary.FailedDestinations = report.Failed()
	summary.Duration = p.opts.Now().Sub(start)

	fields := map[string]any{
		"sources":             summary.Sources,
		"failed_sources":      summary.FailedSources,
		"fetched":             summary.Fetched,
		"articles":            summary.Articles,
		"translated":          stats.Translated,
		"reused":              stats.Reused,
		"cache_hits":          stats.CacheHits,
		"fallbacks":           stats.Fallbacks,
		"destinations":        summary.Destinations,
		"failed_destinations": summary.FailedDestinations,
		"duration":            summary.Duration.String(),
	}

	err := errors.Join(runErr, perr)
	if err != nil {
		fields["error"] = err.Error()
		p.log.ErrorObj("run failed", "run_finished", fields)
		return summary, err
	}
	p.log.InfoObj("run complete", "run_finished", fields)
	return summary, nil
}

func (p *Pipeline) stopReason(ctx context.Context, terr error) error {
	cause := ctx.Err()
	if cause == nil {
		cause = terr
	}
	switch {
	case cause == nil:
		return nil
	case errors.Is(cause, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrDeadlineExceeded, cause)
	case errors.Is(cause, context.Canceled):
		return fmt.Errorf("%w: %w", ErrInterrupted, cause)
	default:
		return cause
	}
}

// snapshot copies doc with every empty language slot holding source text, so
// checkpoints are always readable.
func (p *Pipeline) snapshot(doc domain.OutputDocument) domain.OutputDocument {
	out := domain.OutputDocument{Generated: doc.Generated, Articles: cloneArticles(doc.Articles)}
	for i := range out.Articles {
		out.Articles[i].FillFallback(p.opts.SourceLanguage, p.opts.Languages)
	}
	return out
}

func cloneArticles(in []domain.Article) []domain.Article {
	out := make([]domain.Article, len(in))
	for i, a := range in {
		a.Translations = maps.Clone(a.Translations)
		out[i] = a
	}
	return out
}
