package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/logger"
	"github.com/minicomputer-shop/blog-harvester/internal/markup"
	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
	"github.com/minicomputer-shop/blog-harvester/pkg/providers"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func rssWithItems(host string, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<item><title>Post %d</title><link>https://%s/post-%d</link><description>&lt;p&gt;Body %d&lt;/p&gt;</description></item>`, i, host, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newTestHarvester(log logger.Logger, timeout time.Duration) *Harvester {
	client := httpclient.NewRestyClient(5 * time.Second)
	return NewHarvester(
		providers.DefaultFetcherRegistry(client, ""),
		markup.NewExtractor(5000, 300),
		log,
		Options{Workers: 2, PerSourceLimit: 5, FetchTimeout: timeout, SourceLanguage: "en"},
	)
}

func TestHarvestIsolatesFailingSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/good.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssWithItems("good.example", 7)))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow.xml", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	mux.HandleFunc("/other.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssWithItems("other.example", 2)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	h := newTestHarvester(logger.FromZap(zap.New(core)), 200*time.Millisecond)

	sources := []domain.FeedSource{
		{Name: "Good", URL: srv.URL + "/good.xml", Tag: "homelab"},
		{Name: "Broken", URL: srv.URL + "/broken.xml", Tag: "vmware"},
		{Name: "Slow", URL: srv.URL + "/slow.xml", Tag: "vmware"},
		{Name: "Other", URL: srv.URL + "/other.xml", Tag: "selfhosted"},
	}
	res := h.Harvest(context.Background(), sources)

	if len(res.Articles) != 7 {
		t.Fatalf("Expected 5 + 2 articles, got: %d", len(res.Articles))
	}
	if res.Articles[0].Source != "Good" || res.Articles[5].Source != "Other" {
		t.Errorf("Expected source order preserved, got %s then %s", res.Articles[0].Source, res.Articles[5].Source)
	}

	wantFetched := []int{5, 0, 0, 2}
	for i, report := range res.Sources {
		if report.Fetched != wantFetched[i] {
			t.Errorf("%s: expected %d fetched, got: %d", report.Name, wantFetched[i], report.Fetched)
		}
		if (report.Err != nil) != (wantFetched[i] == 0) {
			t.Errorf("%s: unexpected error state: %v", report.Name, report.Err)
		}
	}

	if n := logs.FilterField(zap.String("event", "feed_fetch_failed")).Len(); n != 2 {
		t.Errorf("Expected 2 fetch failure warnings, got: %d", n)
	}
	if n := logs.FilterField(zap.String("event", "feed_fetched")).Len(); n != 2 {
		t.Errorf("Expected 2 per-source summary lines, got: %d", n)
	}
}

func TestHarvestBuildsArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel>
<item><title>NUC &amp; Proxmox</title><link> https://blog.example.com/nuc </link>
<description>&lt;h2&gt;Intro&lt;/h2&gt;&lt;p&gt;Hello &lt;b&gt;lab&lt;/b&gt;&lt;/p&gt;</description>
<media:thumbnail url="https://blog.example.com/nuc.jpg"/></item>
<item><title>No image</title><link>https://blog.example.com/plain</link></item>
</channel></rss>`))
	}))
	defer srv.Close()

	h := newTestHarvester(nil, time.Second)
	res := h.Harvest(context.Background(), []domain.FeedSource{{Name: "Example", URL: srv.URL + "/feed/", Tag: "homelab"}})
	if len(res.Articles) != 2 {
		t.Fatalf("Expected 2 articles, got: %d", len(res.Articles))
	}

	art := res.Articles[0]
	if art.OriginalURL != "https://blog.example.com/nuc" {
		t.Errorf("Unexpected original url: %q", art.OriginalURL)
	}
	if art.SourceURL != srv.URL {
		t.Errorf("Expected feed origin %s, got: %q", srv.URL, art.SourceURL)
	}
	if art.Tag != "homelab" || art.Source != "Example" {
		t.Errorf("Unexpected source metadata: %+v", art)
	}
	if art.Body != "### Intro\n\nHello **lab**" {
		t.Errorf("Unexpected body: %q", art.Body)
	}
	en := art.Translations["en"]
	if en.Title != "NUC & Proxmox" || en.Excerpt != "Intro Hello lab" {
		t.Errorf("Unexpected source translation: %+v", en)
	}
	if art.Image == nil || *art.Image != "https://blog.example.com/nuc.jpg" {
		t.Errorf("Unexpected image: %v", art.Image)
	}
	if res.Articles[1].Image != nil {
		t.Errorf("Expected nil image, got: %v", *res.Articles[1].Image)
	}
}

func TestHarvestStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newTestHarvester(nil, time.Second)
	res := h.Harvest(ctx, []domain.FeedSource{
		{Name: "a", URL: "http://127.0.0.1:1/a.xml"},
		{Name: "b", URL: "http://127.0.0.1:1/b.xml"},
	})
	if len(res.Articles) != 0 {
		t.Errorf("Expected no articles, got: %d", len(res.Articles))
	}
	if len(res.Sources) != 2 {
		t.Fatalf("Expected a report per source, got: %d", len(res.Sources))
	}
	for _, r := range res.Sources {
		if r.Err == nil {
			t.Errorf("%s: expected cancellation error", r.Name)
		}
	}
}

func TestSourceOrigin(t *testing.T) {
	tests := map[string]string{
		"https://blog.cavelab.dev/index.xml": "https://blog.cavelab.dev",
		"http://localhost:8080/feed?x=1":     "http://localhost:8080",
		"not a url":                          "",
		"":                                   "",
	}
	for in, want := range tests {
		if got := sourceOrigin(in); got != want {
			t.Errorf("sourceOrigin(%q): expected %q, got %q", in, want, got)
		}
	}
}
