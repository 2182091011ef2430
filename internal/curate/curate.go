// Package curate deduplicates harvested articles, caps the set and assigns
// synthetic publish dates and slug ids.
package curate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
)

const maxSlugLength = 55

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Options controls a curation pass.
type Options struct {
	MaxArticles    int
	HalfWindow     int
	SourceLanguage string
}

// Curate deduplicates, caps, schedules and ids articles in one pass. The
// input slice is not modified.
func Curate(articles []domain.Article, today time.Time, opts Options) []domain.Article {
	out := Cap(Dedupe(articles), opts.MaxArticles)
	Schedule(out, today, opts.HalfWindow)
	AssignIDs(out, opts.SourceLanguage)
	return out
}

// Dedupe keeps the first article for every original URL, in input order.
// Articles without a URL are dropped.
func Dedupe(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		key := strings.TrimSpace(a.OriginalURL)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		a.OriginalURL = key
		out = append(out, a)
	}
	return out
}

// Cap truncates articles to at most limit entries. A non-positive limit
// keeps everything.
func Cap(articles []domain.Article, limit int) []domain.Article {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}

// Schedule sets PublishDate so that article i lands on
// today - (halfWindow-1) + i, strictly increasing with i.
func Schedule(articles []domain.Article, today time.Time, halfWindow int) {
	if halfWindow < 1 {
		halfWindow = 1
	}
	start := domain.NewDate(today).AddDays(-(halfWindow - 1))
	for i := range articles {
		articles[i].PublishDate = start.AddDays(i)
	}
}

// AssignIDs gives every article a slug of its source-language title followed
// by its position, so ids are unique within a run.
func AssignIDs(articles []domain.Article, sourceLang string) {
	for i := range articles {
		articles[i].ID = Slugify(articles[i].Translations[sourceLang].Title, i)
	}
}

// Slugify lowercases title, folds every run of characters outside [a-z0-9]
// into one dash, trims dashes, cuts to 55 characters and appends -idx.
func Slugify(title string, idx int) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "article"
	}
	return slug + "-" + strconv.Itoa(idx)
}
