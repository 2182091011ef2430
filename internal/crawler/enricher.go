package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
	"github.com/minicomputer-shop/blog-harvester/pkg/providers"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLBodyBytes  = 1 << 20 // 1 MiB
	maxArticleWorkers = 4
)

// ImageEnricher fills missing lead images from the article page's
// og:image or twitter:image metadata.
type ImageEnricher struct {
	client    httpclient.Client
	log       logger.Logger
	userAgent string
	delay     time.Duration
}

// NewImageEnricher creates an ImageEnricher. delay spaces out page requests.
func NewImageEnricher(client httpclient.Client, log logger.Logger, userAgent string, delay time.Duration) *ImageEnricher {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &ImageEnricher{client: client, log: log, userAgent: userAgent, delay: delay}
}

// Enrich returns a copy of articles where articles without an image got one
// from their page when available. Failures keep the article unchanged.
func (s *ImageEnricher) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles) // default to originals so partial results are returned on cancel

	pending := make([]int, 0, len(articles))
	for idx, art := range articles {
		if art.Image == nil && art.OriginalURL != "" {
			pending = append(pending, idx)
		}
	}
	if len(pending) == 0 {
		return out
	}

	workerCount := min(len(pending), maxArticleWorkers)

	var limiter <-chan time.Time
	if s.delay > 0 {
		ticker := time.NewTicker(s.delay)
		limiter = ticker.C
		defer ticker.Stop()
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := 0; workerID < workerCount; workerID++ {
		wg.Add(1)
		go s.articleWorker(ctx, articles, limiter, jobCh, out, &wg, workerID)
	}

dispatch:
	for _, idx := range pending {
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- idx:
		}
	}
	close(jobCh)

	wg.Wait()

	return out
}

// articleWorker processes articles from the job channel, respecting the rate limiter.
func (s *ImageEnricher) articleWorker(
	ctx context.Context,
	articles []domain.Article,
	limiter <-chan time.Time,
	jobCh <-chan int,
	out []domain.Article,
	wg *sync.WaitGroup,
	workerID int,
) {
	defer wg.Done()

	// Workers keep draining jobCh after cancellation so the dispatcher never
	// blocks on a send.
	for idx := range jobCh {
		if ctx.Err() != nil {
			continue
		}

		if limiter != nil {
			select {
			case <-ctx.Done():
				continue
			case <-limiter:
			}
		}

		art := articles[idx]
		image, err := s.fetchImage(ctx, art, workerID)
		if err != nil {
			s.log.WarnObj("lead image lookup failed", "image_enrich_failed", map[string]any{
				"worker_id": workerID,
				"source":    art.Source,
				"url":       art.OriginalURL,
				"error":     err.Error(),
			})
			continue
		}
		if image != "" {
			out[idx].Image = &image
		}
	}
}

// fetchImage fetches the article HTML and returns its absolute lead image URL.
func (s *ImageEnricher) fetchImage(ctx context.Context, art domain.Article, workerID int) (string, error) {
	headers := providers.Headers(s.userAgent)
	headers["Accept"] = "text/html,application/xhtml+xml"

	s.log.DebugObj("reading article metadata", "image_enrich_start", map[string]any{
		"worker_id": workerID,
		"url":       art.OriginalURL,
	})

	resp, err := s.client.Get(ctx, art.OriginalURL, headers)
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return "", fmt.Errorf("status %d body: %s", code, snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return "", err
	}
	return resolveURL(meta.ImageURL, art.OriginalURL), nil
}

// parseMeta extracts page metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[property="og:image:url"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	ImageURL string
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
