package translate

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
)

const (
	DefaultChunkLimit   = 480
	DefaultMaxChunks    = 4
	DefaultExcerptLimit = 250
)

// Options configures a Translator.
type Options struct {
	SourceLanguage string
	// Languages are the target languages; the source language is skipped.
	Languages  []string
	ChunkLimit int
	MaxChunks  int
	// ExcerptLimit caps, in runes, the excerpt text sent for translation.
	ExcerptLimit int
	Retry        RetryPolicy
	Delay        time.Duration
	Jitter       time.Duration
}

// Stats counts what happened to the language slots of a batch.
type Stats struct {
	Articles   int
	Reused     int
	Translated int
	Fallbacks  int
	CacheHits  int
}

// ProgressFunc is called after every finished article.
type ProgressFunc func(done, total int, article domain.Article)

// Translator fills the non-source language slots of articles.
type Translator struct {
	svc   Service
	cache Cache
	log   logger.Logger
	opts  Options
	pacer *Pacer
}

// New builds a Translator. cache may be nil.
func New(svc Service, cache Cache, log logger.Logger, opts Options) *Translator {
	if log == nil {
		log = logger.NopLogger{}
	}
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = DefaultChunkLimit
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = DefaultMaxChunks
	}
	if opts.ExcerptLimit <= 0 {
		opts.ExcerptLimit = DefaultExcerptLimit
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	langs := make([]string, 0, len(opts.Languages))
	for _, l := range opts.Languages {
		if l != "" && l != opts.SourceLanguage {
			langs = append(langs, l)
		}
	}
	opts.Languages = langs

	return &Translator{
		svc:   svc,
		cache: cache,
		log:   log,
		opts:  opts,
		pacer: NewPacer(opts.Delay, opts.Jitter),
	}
}

type outcome int

const (
	outcomeEmpty outcome = iota
	outcomeCached
	outcomeTranslated
	outcomeFallback
)

// TranslateText translates text into target. It reports false when the
// original text was returned because the service could not be reached.
func (t *Translator) TranslateText(ctx context.Context, text, target string) (string, bool) {
	out, res := t.translate(ctx, text, target)
	return out, res != outcomeFallback
}

func (t *Translator) translate(ctx context.Context, text, target string) (string, outcome) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", outcomeEmpty
	}
	source := t.opts.SourceLanguage

	if t.cache != nil {
		if hit, ok := t.cache.Get(source, target, text); ok {
			return hit, outcomeCached
		}
	}

	chunks := Chunk(text, t.opts.ChunkLimit, t.opts.MaxChunks)
	parts := make([]string, 0, len(chunks))
	for idx, chunk := range chunks {
		var translated string
		err := t.opts.Retry.Do(ctx, func(ctx context.Context) error {
			if err := t.pacer.Wait(ctx); err != nil {
				return err
			}
			out, err := t.svc.Translate(ctx, chunk, source, target)
			if err != nil {
				return err
			}
			translated = out
			return nil
		})
		if err != nil {
			t.log.WarnObj("translation unavailable, keeping source text", "translation_fallback", map[string]any{
				"target": target,
				"chunk":  idx + 1,
				"chunks": len(chunks),
				"error":  err.Error(),
			})
			return text, outcomeFallback
		}
		parts = append(parts, translated)
	}

	out := strings.Join(parts, " ")
	if t.cache != nil {
		if err := t.cache.Put(source, target, text, out); err != nil {
			t.log.WarnObj("failed to store translation", "translation_cache_failed", map[string]any{
				"target": target,
				"error":  err.Error(),
			})
		}
	}
	return out, outcomeTranslated
}

// TranslateAll fills the target language slots of every article in place.
// Slots found in prior (same original URL and same source title, with a title
// that differs from the source one) are reused without calling the service.
// When ctx ends, the remaining slots get the source text and ctx's error is
// returned.
func (t *Translator) TranslateAll(ctx context.Context, articles []domain.Article, prior []domain.Article, progress ProgressFunc) (Stats, error) {
	var stats Stats
	source := t.opts.SourceLanguage
	previous := indexByURL(prior)

	var runErr error
	for i := range articles {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		a := &articles[i]
		if a.Translations == nil {
			a.Translations = make(map[string]domain.Translation, len(t.opts.Languages)+1)
		}
		base := a.Translations[source]
		old, hasOld := previous[strings.TrimSpace(a.OriginalURL)]

		for _, lang := range t.opts.Languages {
			if hasOld {
				if reused, ok := reusable(old, base, source, lang); ok {
					a.Translations[lang] = reused
					stats.Reused++
					continue
				}
			}

			title, tr := t.translate(ctx, base.Title, lang)
			excerpt, er := t.translate(ctx, clip(base.Excerpt, t.opts.ExcerptLimit), lang)
			if title == "" {
				title = base.Title
			}
			a.Translations[lang] = domain.Translation{Title: title, Excerpt: excerpt}

			switch {
			case tr == outcomeFallback || er == outcomeFallback:
				stats.Fallbacks++
			case tr == outcomeCached && (er == outcomeCached || er == outcomeEmpty):
				stats.CacheHits++
			default:
				stats.Translated++
			}
		}

		stats.Articles++
		t.log.DebugObj("article translated", "article_translated", map[string]any{
			"id":        a.ID,
			"languages": len(t.opts.Languages),
		})
		if progress != nil {
			progress(i+1, len(articles), *a)
		}
	}

	if runErr == nil {
		runErr = ctx.Err()
	}
	for i := range articles {
		stats.Fallbacks += articles[i].FillFallback(source, t.opts.Languages)
	}
	return stats, runErr
}

func indexByURL(articles []domain.Article) map[string]domain.Article {
	out := make(map[string]domain.Article, len(articles))
	for _, a := range articles {
		url := strings.TrimSpace(a.OriginalURL)
		if url == "" {
			continue
		}
		if _, seen := out[url]; !seen {
			out[url] = a
		}
	}
	return out
}

func reusable(old domain.Article, base domain.Translation, source, lang string) (domain.Translation, bool) {
	if old.Translations[source].Title != base.Title {
		return domain.Translation{}, false
	}
	prev, ok := old.Translations[lang]
	if !ok || prev.Title == "" || prev.Title == base.Title {
		return domain.Translation{}, false
	}
	return prev, true
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
