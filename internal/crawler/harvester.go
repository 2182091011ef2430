package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/internal/markup"
	"github.com/minicomputer-shop/blog-harvester/pkg/providers"
)

const (
	defaultWorkers        = 4
	defaultPerSourceLimit = 5
)

// Options tunes a Harvester.
type Options struct {
	Workers        int
	PerSourceLimit int
	FetchTimeout   time.Duration
	SourceLanguage string
}

// SourceReport summarizes one source after the fetch stage.
type SourceReport struct {
	Name    string
	Fetched int
	Err     error
}

// Result is the merged output of one fetch stage, in source order.
type Result struct {
	Articles []domain.Article
	Sources  []SourceReport
}

// Harvester fetches every configured source with a bounded worker pool and
// builds unscheduled articles from the parsed items.
type Harvester struct {
	registry  providers.FetcherRegistry
	extractor *markup.Extractor
	log       logger.Logger
	opts      Options
}

// NewHarvester creates a Harvester.
func NewHarvester(registry providers.FetcherRegistry, extractor *markup.Extractor, log logger.Logger, opts Options) *Harvester {
	if log == nil {
		log = logger.NopLogger{}
	}
	if extractor == nil {
		extractor = markup.NewExtractor(0, 0)
	}
	if opts.Workers < 1 {
		opts.Workers = defaultWorkers
	}
	if opts.PerSourceLimit < 1 {
		opts.PerSourceLimit = defaultPerSourceLimit
	}
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	return &Harvester{registry: registry, extractor: extractor, log: log, opts: opts}
}

// Harvest fetches all sources. A failing source contributes zero articles;
// when ctx ends, in-flight fetches are abandoned and finished sources keep
// their results.
func (h *Harvester) Harvest(ctx context.Context, sources []domain.FeedSource) Result {
	slots := make([][]domain.Article, len(sources))
	reports := make([]SourceReport, len(sources))

	jobCh := make(chan int)
	var wg sync.WaitGroup

	workerCount := min(len(sources), h.opts.Workers)
	for workerID := 0; workerID < workerCount; workerID++ {
		wg.Add(1)
		go h.sourceWorker(ctx, sources, jobCh, slots, reports, &wg, workerID)
	}

	for idx := range sources {
		if ctx.Err() != nil {
			break
		}
		jobCh <- idx
	}
	close(jobCh)

	wg.Wait()

	res := Result{Sources: make([]SourceReport, 0, len(sources))}
	for idx, src := range sources {
		res.Articles = append(res.Articles, slots[idx]...)
		report := reports[idx]
		if report.Name == "" {
			report = SourceReport{Name: src.Name, Err: context.Cause(ctx)}
		}
		res.Sources = append(res.Sources, report)
	}
	return res
}

// sourceWorker owns slots[idx] and reports[idx] for every idx it receives.
func (h *Harvester) sourceWorker(
	ctx context.Context,
	sources []domain.FeedSource,
	jobCh <-chan int,
	slots [][]domain.Article,
	reports []SourceReport,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	for idx := range jobCh {
		src := sources[idx]
		if ctx.Err() != nil {
			reports[idx] = SourceReport{Name: src.Name, Err: ctx.Err()}
			continue
		}

		articles, err := h.fetchSource(ctx, src, workerID)
		if err != nil {
			h.log.WarnObj("feed fetch failed", "feed_fetch_failed", map[string]any{
				"worker_id": workerID,
				"source":    src.Name,
				"url":       src.URL,
				"error":     err.Error(),
			})
			reports[idx] = SourceReport{Name: src.Name, Err: err}
			continue
		}

		slots[idx] = articles
		reports[idx] = SourceReport{Name: src.Name, Fetched: len(articles)}
		h.log.InfoObj("feed fetched", "feed_fetched", map[string]any{
			"source":   src.Name,
			"articles": len(articles),
			"avg_body": averageBody(articles),
		})
	}
}

func (h *Harvester) fetchSource(ctx context.Context, src domain.FeedSource, workerID int) ([]domain.Article, error) {
	fetcher, err := h.registry.FetcherFor(src)
	if err != nil {
		return nil, err
	}

	if h.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.FetchTimeout)
		defer cancel()
	}

	h.log.DebugObj("fetching feed", "feed_fetch_start", map[string]any{
		"worker_id": workerID,
		"source":    src.Name,
		"type":      src.SourceType(),
	})

	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	if len(items) > h.opts.PerSourceLimit {
		items = items[:h.opts.PerSourceLimit]
	}

	origin := sourceOrigin(src.URL)
	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, h.buildArticle(src, origin, item))
	}
	return articles, nil
}

func (h *Harvester) buildArticle(src domain.FeedSource, origin string, item domain.RawFeedItem) domain.Article {
	body, excerpt := h.extractor.Extract(item.Body)

	art := domain.Article{
		Source:      src.Name,
		SourceURL:   origin,
		OriginalURL: strings.TrimSpace(item.Link),
		Tag:         src.Tag,
		Body:        body,
		Translations: map[string]domain.Translation{
			h.opts.SourceLanguage: {Title: item.Title, Excerpt: excerpt},
		},
	}
	if img := strings.TrimSpace(item.ImageURL); img != "" {
		art.Image = &img
	}
	return art
}

// sourceOrigin returns scheme://host of the feed URL.
func sourceOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func averageBody(articles []domain.Article) int {
	if len(articles) == 0 {
		return 0
	}
	total := 0
	for _, a := range articles {
		total += len([]rune(a.Body))
	}
	return total / len(articles)
}
