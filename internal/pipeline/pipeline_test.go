package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/crawler"
	"github.com/minicomputer-shop/blog-harvester/internal/curate"
	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/internal/translate"
	"github.com/minicomputer-shop/blog-harvester/pkg/publishers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	langs = []string{"cs", "de", "pl", "fr", "es"}
	today = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
)

type staticHarvester struct {
	result crawler.Result
}

func (h staticHarvester) Harvest(context.Context, []domain.FeedSource) crawler.Result {
	return h.result
}

type prefixService struct {
	mu    sync.Mutex
	calls int
}

func (s *prefixService) Translate(_ context.Context, text, _, target string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return "[" + target + "] " + text, nil
}

// blockingService never answers before ctx ends.
type blockingService struct{}

func (blockingService) Translate(ctx context.Context, _, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type failingPublisher struct{}

func (failingPublisher) ID() string   { return "remote" }
func (failingPublisher) Type() string { return "memory" }
func (failingPublisher) Publish(context.Context, publishers.Payload) error {
	return errors.New("remote unavailable")
}

func harvested(n int) crawler.Result {
	res := crawler.Result{Sources: []crawler.SourceReport{
		{Name: "Alpha", Fetched: n},
		{Name: "Broken", Err: errors.New("status 500")},
	}}
	for i := 0; i < n; i++ {
		res.Articles = append(res.Articles, domain.Article{
			Source:      "Alpha",
			SourceURL:   "https://alpha.example",
			OriginalURL: fmt.Sprintf("https://alpha.example/post-%d", i),
			Tag:         "Homelab",
			Body:        "Body",
			Translations: map[string]domain.Translation{
				"en": {Title: fmt.Sprintf("Post %d", i), Excerpt: "Excerpt"},
			},
		})
	}
	return res
}

func newPipeline(t *testing.T, h Harvester, svc translate.Service, sink Sink, log logger.Logger) *Pipeline {
	t.Helper()
	tr := translate.New(svc, nil, log, translate.Options{
		SourceLanguage: "en",
		Languages:      langs,
		Retry:          translate.NoDelay(2),
	})
	return New(h, nil, tr, sink, log, Options{
		Sources:        []domain.FeedSource{{Name: "Alpha"}, {Name: "Broken"}},
		SourceLanguage: "en",
		Languages:      langs,
		Curate:         curate.Options{MaxArticles: 60, HalfWindow: 30},
		PublishTimeout: 5 * time.Second,
		Now:            func() time.Time { return today },
	})
}

func fileSink(t *testing.T, paths ...string) *publishers.Sink {
	t.Helper()
	sink, err := publishers.BuildSink(context.Background(), publishers.DefaultRegistry(), publishers.FileConfigs(paths), nil)
	if err != nil {
		t.Fatalf("build sink: %v", err)
	}
	return sink
}

func TestRunPublishesCuratedTranslatedDocument(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "shop-a", "blog-data.json")
	mirror := filepath.Join(dir, "shop-b", "blog-data.json")

	core, logs := observer.New(zap.InfoLevel)
	log := logger.FromZap(zap.New(core))
	p := newPipeline(t, staticHarvester{result: harvested(75)}, &prefixService{}, fileSink(t, primary, mirror), log)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Fetched != 75 || summary.Articles != 60 || summary.FailedSources != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if summary.Destinations != 2 || summary.FailedDestinations != 0 {
		t.Errorf("Expected 2 healthy destinations, got: %+v", summary)
	}

	doc, err := publishers.ReadDocument(primary)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(doc.Articles) != 60 {
		t.Fatalf("Expected 60 articles, got: %d", len(doc.Articles))
	}
	first, last := doc.Articles[0], doc.Articles[59]
	if first.PublishDate.String() != "2026-09-18" || last.PublishDate.String() != "2026-11-16" {
		t.Errorf("Expected window 2026-09-18..2026-11-16, got %s..%s", first.PublishDate, last.PublishDate)
	}
	if first.ID != "post-0-0" {
		t.Errorf("Expected slug id post-0-0, got: %s", first.ID)
	}
	for _, lang := range langs {
		if got := last.Translations[lang].Title; got != "["+lang+"] Post 59" {
			t.Errorf("Expected %s translation, got: %q", lang, got)
		}
	}

	if n := logs.FilterField(zap.String("event", "translate_progress")).Len(); n != 60 {
		t.Errorf("Expected 60 progress lines, got: %d", n)
	}
	if n := logs.FilterField(zap.String("event", "run_finished")).Len(); n != 1 {
		t.Errorf("Expected one final line, got: %d", n)
	}
}

func TestRunReusesPublishedTranslations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog-data.json")
	sink := fileSink(t, path)

	svc := &prefixService{}
	if _, err := newPipeline(t, staticHarvester{result: harvested(3)}, svc, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := svc.calls

	summary, err := newPipeline(t, staticHarvester{result: harvested(3)}, svc, sink, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if svc.calls != calls {
		t.Errorf("Expected no new service calls, got %d more", svc.calls-calls)
	}
	if summary.Translation.Reused != 3*len(langs) {
		t.Errorf("Expected all slots reused, got: %+v", summary.Translation)
	}
}

func TestRunDeadlinePublishesPartialDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog-data.json")
	p := newPipeline(t, staticHarvester{result: harvested(4)}, blockingService{}, fileSink(t, path), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, err := p.Run(ctx)
	if !errors.Is(err, ErrDeadlineExceeded) {
		t.Fatalf("Expected ErrDeadlineExceeded, got: %v", err)
	}
	if !summary.Partial {
		t.Errorf("Expected partial summary")
	}

	doc, rerr := publishers.ReadDocument(path)
	if rerr != nil {
		t.Fatalf("Expected partial document to be published, got: %v", rerr)
	}
	if len(doc.Articles) != 4 {
		t.Fatalf("Expected 4 articles, got: %d", len(doc.Articles))
	}
	for _, a := range doc.Articles {
		for _, lang := range langs {
			if a.Translations[lang] != a.Translations["en"] {
				t.Errorf("Expected %s slot of %s to fall back to source text, got: %+v", lang, a.ID, a.Translations[lang])
			}
		}
	}
}

func TestRunPrimaryFailure(t *testing.T) {
	sink, err := publishers.NewSink([]publishers.Destination{
		{Publisher: failingPublisher{}, Primary: true},
	}, nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	_, err = newPipeline(t, staticHarvester{result: harvested(2)}, &prefixService{}, sink, nil).Run(context.Background())
	if !errors.Is(err, publishers.ErrPrimaryFailed) {
		t.Errorf("Expected ErrPrimaryFailed, got: %v", err)
	}
}

func TestTranslateOnlyFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog-data.json")
	sink := fileSink(t, path)

	seed := domain.OutputDocument{
		Generated: time.Date(2026, 10, 1, 6, 0, 0, 0, time.UTC),
		Articles: []domain.Article{
			{
				ID:          "done-0",
				OriginalURL: "https://alpha.example/done",
				Translations: map[string]domain.Translation{
					"en": {Title: "Done"},
					"cs": {Title: "Hotovo"}, "de": {Title: "Fertig"}, "pl": {Title: "Gotowe"},
					"fr": {Title: "Fini"}, "es": {Title: "Hecho"},
				},
			},
			{
				ID:          "gap-1",
				OriginalURL: "https://alpha.example/gap",
				Translations: map[string]domain.Translation{
					"en": {Title: "Gap"},
					"cs": {Title: "Gap"},
				},
			},
		},
	}
	if _, err := sink.Publish(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := &prefixService{}
	summary, err := newPipeline(t, staticHarvester{}, svc, sink, nil).TranslateOnly(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.calls != len(langs) {
		t.Errorf("Expected %d calls for the gap article, got: %d", len(langs), svc.calls)
	}
	if summary.Translation.Reused != len(langs) {
		t.Errorf("Expected %d reused slots, got: %+v", len(langs), summary.Translation)
	}

	doc, err := publishers.ReadDocument(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !doc.Generated.Equal(seed.Generated) {
		t.Errorf("Expected generated timestamp to be kept, got: %v", doc.Generated)
	}
	if got := doc.Articles[1].Translations["cs"].Title; got != "[cs] Gap" {
		t.Errorf("Expected gap to be translated, got: %q", got)
	}
	if got := doc.Articles[0].Translations["de"].Title; got != "Fertig" {
		t.Errorf("Expected existing translation kept, got: %q", got)
	}
}

func TestTranslateOnlyWithoutDocument(t *testing.T) {
	sink := fileSink(t, filepath.Join(t.TempDir(), "missing.json"))
	_, err := newPipeline(t, staticHarvester{}, &prefixService{}, sink, nil).TranslateOnly(context.Background())
	if err == nil {
		t.Errorf("Expected error when no document is published yet")
	}
}
