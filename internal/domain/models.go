package domain

import (
	"fmt"
	"strings"
	"time"
)

// Domain contains core models shared by every pipeline stage.

const (
	SourceTypeFeed        = "feed"
	SourceTypeNewsSitemap = "news-sitemap"
)

// FeedSource is one configured upstream feed.
type FeedSource struct {
	ID   string `mapstructure:"id" yaml:"id" json:"id"`
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	URL  string `mapstructure:"url" yaml:"url" json:"url"`
	Tag  string `mapstructure:"tag" yaml:"tag" json:"tag"`
	Type string `mapstructure:"type" yaml:"type" json:"type"`
}

// Key returns the identifier used in logs and registries.
func (s FeedSource) Key() string {
	if id := strings.TrimSpace(s.ID); id != "" {
		return id
	}
	return s.Name
}

// SourceType returns the configured type, defaulting to a plain feed.
func (s FeedSource) SourceType() string {
	if t := strings.ToLower(strings.TrimSpace(s.Type)); t != "" {
		return t
	}
	return SourceTypeFeed
}

// RawFeedItem is one parsed feed entry before extraction.
type RawFeedItem struct {
	Title     string
	Link      string
	Body      string
	ImageURL  string
	Published string
}

// Translation is the localized metadata of one article.
type Translation struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Article is the canonical unit flowing through the pipeline.
type Article struct {
	ID           string                 `json:"id"`
	PublishDate  Date                   `json:"publishDate"`
	Source       string                 `json:"source"`
	SourceURL    string                 `json:"sourceUrl"`
	OriginalURL  string                 `json:"originalUrl"`
	Image        *string                `json:"image"`
	Tag          string                 `json:"tag"`
	Body         string                 `json:"body"`
	Translations map[string]Translation `json:"translations"`
}

// FillFallback makes sure every language slot holds readable text by copying
// the source-language entry into any missing or empty slot.
func (a *Article) FillFallback(sourceLang string, langs []string) int {
	if a.Translations == nil {
		a.Translations = make(map[string]Translation, len(langs)+1)
	}
	base := a.Translations[sourceLang]

	filled := 0
	for _, lang := range langs {
		cur, ok := a.Translations[lang]
		if ok && cur.Title != "" {
			continue
		}
		a.Translations[lang] = base
		filled++
	}
	return filled
}

// OutputDocument is the single structured document published per run.
type OutputDocument struct {
	Generated time.Time `json:"generated"`
	Articles  []Article `json:"articles"`
}

const dateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	*d = Date{Time: t}
	return nil
}
