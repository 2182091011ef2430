// Package config loads harvester settings from defaults, an optional config
// file, BLOG_HARVESTER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BLOG_HARVESTER"

// Configuration validation errors.
var (
	ErrNoFeeds            = errors.New("at least one feed is required")
	ErrFeedMissingName    = errors.New("feed name is required")
	ErrFeedMissingURL     = errors.New("feed url is required")
	ErrFeedUnknownType    = errors.New("feed type must be 'feed' or 'news-sitemap'")
	ErrNoLanguages        = errors.New("translate.languages must list at least one language")
	ErrMissingSourceLang  = errors.New("translate.source_language is required")
	ErrInvalidWorkers     = errors.New("fetch.workers must be at least 1")
	ErrInvalidTimeout     = errors.New("timeouts must be positive")
	ErrInvalidMaxAttempts = errors.New("translate.max_attempts must be at least 1")
	ErrInvalidLimit       = errors.New("limits must be positive")
	ErrNoOutputs          = errors.New("publish.outputs or publish.publishers_file is required")
	ErrInvalidLogFormat   = errors.New("log.format must be 'json' or 'console'")
)

// Config is the complete harvester configuration.
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	RunTimeout    time.Duration       `mapstructure:"run_timeout"`
	UserAgent     string              `mapstructure:"user_agent"`
	TranslateOnly bool                `mapstructure:"translate_only"`
	Fetch         FetchConfig         `mapstructure:"fetch"`
	Curate        CurateConfig        `mapstructure:"curate"`
	Markup        MarkupConfig        `mapstructure:"markup"`
	Translate     TranslateConfig     `mapstructure:"translate"`
	Publish       PublishConfig       `mapstructure:"publish"`
	Feeds         []domain.FeedSource `mapstructure:"feeds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FetchConfig controls the fetch stage.
type FetchConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	Workers        int           `mapstructure:"workers"`
	PerSourceLimit int           `mapstructure:"per_source_limit"`
	EnrichImages   bool          `mapstructure:"enrich_images"`
}

// CurateConfig controls deduplication and scheduling.
type CurateConfig struct {
	MaxArticles int `mapstructure:"max_articles"`
	HalfWindow  int `mapstructure:"half_window"`
}

type MarkupConfig struct {
	BodyLimit    int `mapstructure:"body_limit"`
	ExcerptLimit int `mapstructure:"excerpt_limit"`
}

// TranslateConfig controls the translation service and its pacing.
type TranslateConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	SourceLanguage string        `mapstructure:"source_language"`
	Languages      []string      `mapstructure:"languages"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	Backoff        time.Duration `mapstructure:"backoff"`
	Delay          time.Duration `mapstructure:"delay"`
	Jitter         time.Duration `mapstructure:"jitter"`
	ChunkLimit     int           `mapstructure:"chunk_limit"`
	MaxChunks      int           `mapstructure:"max_chunks"`
	ExcerptLimit   int           `mapstructure:"excerpt_limit"`
	CachePath      string        `mapstructure:"cache_path"`
}

// PublishConfig lists destinations. Plain outputs become file publishers;
// publishers_file adds http and queue destinations.
type PublishConfig struct {
	Outputs        []string `mapstructure:"outputs"`
	PublishersFile string   `mapstructure:"publishers_file"`
}

// DefaultOutputs are the storefront variants served from client/public.
var DefaultOutputs = []string{
	"Asset-Manager/client/public/blog-data.json",
	"Attached-Assets/client/public/blog-data.json",
	"Mini-Computer-Shop-2/client/public/blog-data.json",
	"Modern-Eshop/client/public/blog-data.json",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("run_timeout", 20*time.Minute)
	v.SetDefault("user_agent", "MinicomputerBlog/1.0")
	v.SetDefault("translate_only", false)

	v.SetDefault("fetch.timeout", 8*time.Second)
	v.SetDefault("fetch.workers", 4)
	v.SetDefault("fetch.per_source_limit", 5)
	v.SetDefault("fetch.enrich_images", false)

	v.SetDefault("curate.max_articles", 60)
	v.SetDefault("curate.half_window", 30)

	v.SetDefault("markup.body_limit", 5000)
	v.SetDefault("markup.excerpt_limit", 300)

	v.SetDefault("translate.endpoint", "https://translate.googleapis.com/translate_a/single")
	v.SetDefault("translate.source_language", "en")
	v.SetDefault("translate.languages", []string{"cs", "de", "pl", "fr", "es"})
	v.SetDefault("translate.timeout", 10*time.Second)
	v.SetDefault("translate.max_attempts", 3)
	v.SetDefault("translate.backoff", 500*time.Millisecond)
	v.SetDefault("translate.delay", 120*time.Millisecond)
	v.SetDefault("translate.jitter", 80*time.Millisecond)
	v.SetDefault("translate.chunk_limit", 480)
	v.SetDefault("translate.max_chunks", 4)
	v.SetDefault("translate.excerpt_limit", 250)
	v.SetDefault("translate.cache_path", "")

	v.SetDefault("publish.outputs", DefaultOutputs)
	v.SetDefault("publish.publishers_file", "")
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"run-timeout":     "run_timeout",
	"translate-only":  "translate_only",
	"workers":         "fetch.workers",
	"enrich-images":   "fetch.enrich_images",
	"languages":       "translate.languages",
	"cache-path":      "translate.cache_path",
	"output":          "publish.outputs",
	"publishers-file": "publish.publishers_file",
}

// NewFlagSet declares the harvester's command-line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML or JSON config file")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or console")
	fs.Duration("run-timeout", 20*time.Minute, "global deadline for one run")
	fs.Bool("translate-only", false, "skip fetching and fill translation gaps of the published document")
	fs.Int("workers", 4, "concurrent feed fetches")
	fs.Bool("enrich-images", false, "read og:image for articles without a feed image")
	fs.StringSlice("languages", nil, "target languages (default cs,de,pl,fr,es)")
	fs.String("cache-path", "", "bbolt file memoizing translations")
	fs.StringSlice("output", nil, "output file path, repeatable (default: storefront variants)")
	fs.String("publishers-file", "", "YAML/JSON file describing extra publishers")
	return fs
}

// Load resolves configuration. fs may be nil; only flags the user actually
// set override file and environment values.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("blog-harvester")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	if len(c.Feeds) == 0 {
		c.Feeds = DefaultFeeds()
	}
	for i := range c.Feeds {
		c.Feeds[i].Name = strings.TrimSpace(c.Feeds[i].Name)
		c.Feeds[i].URL = strings.TrimSpace(c.Feeds[i].URL)
	}

	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Translate.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translate.SourceLanguage))
	c.Translate.Languages = cleanList(c.Translate.Languages, true)
	c.Publish.Outputs = cleanList(c.Publish.Outputs, false)
}

// cleanList splits comma-joined entries, trims them and drops blanks and
// duplicates, keeping the first occurrence.
func cleanList(in []string, lower bool) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, item := range strings.Split(entry, ",") {
			item = strings.TrimSpace(item)
			if lower {
				item = strings.ToLower(item)
			}
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return ErrNoFeeds
	}
	for i, f := range c.Feeds {
		if f.Name == "" {
			return fmt.Errorf("%w: feeds[%d]", ErrFeedMissingName, i)
		}
		if f.URL == "" {
			return fmt.Errorf("%w: feeds[%d] %s", ErrFeedMissingURL, i, f.Name)
		}
		switch f.SourceType() {
		case domain.SourceTypeFeed, domain.SourceTypeNewsSitemap:
		default:
			return fmt.Errorf("%w: feeds[%d] %s has %q", ErrFeedUnknownType, i, f.Name, f.Type)
		}
	}

	if c.Translate.SourceLanguage == "" {
		return ErrMissingSourceLang
	}
	if len(c.Translate.Languages) == 0 {
		return ErrNoLanguages
	}
	if c.Translate.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Fetch.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.RunTimeout <= 0 || c.Fetch.Timeout <= 0 || c.Translate.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Fetch.PerSourceLimit < 1 || c.Curate.MaxArticles < 1 || c.Curate.HalfWindow < 1 ||
		c.Markup.BodyLimit < 1 || c.Markup.ExcerptLimit < 1 ||
		c.Translate.ChunkLimit < 1 || c.Translate.MaxChunks < 1 || c.Translate.ExcerptLimit < 1 {
		return ErrInvalidLimit
	}

	if len(c.Publish.Outputs) == 0 && strings.TrimSpace(c.Publish.PublishersFile) == "" {
		return ErrNoOutputs
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// TargetLanguages returns the configured languages without the source one.
func (c *Config) TargetLanguages() []string {
	out := make([]string, 0, len(c.Translate.Languages))
	for _, lang := range c.Translate.Languages {
		if lang != c.Translate.SourceLanguage {
			out = append(out, lang)
		}
	}
	return out
}
