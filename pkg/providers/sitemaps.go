package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/markup"
)

// maxSitemapDepth bounds how far nested sitemap indexes are followed.
const maxSitemapDepth = 3

type googleNewsSitemap struct {
	URLs []googleNewsURL `xml:"url"`
}

type googleNewsURL struct {
	Loc    string            `xml:"loc"`
	News   googleNewsDetail  `xml:"news"`
	Images []googleNewsImage `xml:"image"`
}

type sitemapIndex struct {
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

type googleNewsDetail struct {
	PublicationDate string `xml:"publication_date"`
	Title           string `xml:"title"`
}

type googleNewsImage struct {
	Loc string `xml:"loc"`
}

// parseGoogleNewsSitemap parses the XML data into a slice of googleNewsURL structs.
func parseGoogleNewsSitemap(data []byte) ([]googleNewsURL, error) {
	var sitemap googleNewsSitemap
	if err := xml.Unmarshal(data, &sitemap); err != nil {
		return nil, err
	}
	return sitemap.URLs, nil
}

// parseSitemapIndex parses an XML sitemap index file and returns the nested sitemap URLs.
func parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// itemsFromSitemap turns sitemap entries into raw items. News sitemaps carry
// no body.
func itemsFromSitemap(urls []googleNewsURL) []domain.RawFeedItem {
	items := make([]domain.RawFeedItem, 0, len(urls))
	for _, entry := range urls {
		loc := strings.TrimSpace(entry.Loc)
		title := markup.Plain(entry.News.Title)
		if loc == "" || title == "" {
			continue
		}

		items = append(items, domain.RawFeedItem{
			Title:     title,
			Link:      loc,
			ImageURL:  firstImageURL(entry.Images),
			Published: parsePublicationDate(entry.News.PublicationDate),
		})
	}
	return items
}

// firstImageURL returns the first non-empty image URL from the list.
func firstImageURL(images []googleNewsImage) string {
	for _, img := range images {
		if loc := strings.TrimSpace(img.Loc); loc != "" {
			return loc
		}
	}
	return ""
}

// newsSitemapFetcher implements Fetcher for Google News sitemap sources.
type newsSitemapFetcher struct {
	client  HTTPClient
	headers map[string]string
}

// NewNewsSitemapFetcher builds a Fetcher for Google News sitemaps and sitemap indexes.
func NewNewsSitemapFetcher(client HTTPClient, userAgent string) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &newsSitemapFetcher{client: client, headers: Headers(userAgent)}
}

func (f *newsSitemapFetcher) ID() string {
	return domain.SourceTypeNewsSitemap
}

// Fetch retrieves entries from a news sitemap, following sitemap indexes.
func (f *newsSitemapFetcher) Fetch(ctx context.Context, src domain.FeedSource) ([]domain.RawFeedItem, error) {
	urls, err := f.fetchNewsURLs(ctx, src, src.URL, make(map[string]struct{}), 0)
	if err != nil {
		return nil, err
	}
	return itemsFromSitemap(urls), nil
}

// fetchNewsURLs resolves url into article entries, following sitemap indexes if necessary.
func (f *newsSitemapFetcher) fetchNewsURLs(ctx context.Context, src domain.FeedSource, url string, visited map[string]struct{}, depth int) ([]googleNewsURL, error) {
	if _, seen := visited[url]; seen || depth > maxSitemapDepth {
		return nil, nil
	}
	visited[url] = struct{}{}

	raw, err := fetchDocument(ctx, f.client, url, src.Key(), f.headers)
	if err != nil {
		return nil, err
	}

	urls, err := parseGoogleNewsSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode news sitemap: %w", err)
	}
	if len(urls) > 0 {
		return urls, nil
	}

	indexURLs, err := parseSitemapIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap index: %w", err)
	}

	var all []googleNewsURL
	for _, indexURL := range indexURLs {
		nested, err := f.fetchNewsURLs(ctx, src, indexURL, visited, depth+1)
		if err != nil {
			return nil, err
		}
		all = append(all, nested...)
	}
	return all, nil
}
