package providers

import (
	"context"
	"fmt"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/feedparse"
)

// feedFetcher implements Fetcher for RSS and Atom sources.
type feedFetcher struct {
	client  HTTPClient
	headers map[string]string
}

// NewFeedFetcher builds a Fetcher for RSS and Atom feeds.
func NewFeedFetcher(client HTTPClient, userAgent string) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &feedFetcher{client: client, headers: Headers(userAgent)}
}

func (f *feedFetcher) ID() string {
	return domain.SourceTypeFeed
}

// Fetch downloads the feed once and parses it; no retry.
func (f *feedFetcher) Fetch(ctx context.Context, src domain.FeedSource) ([]domain.RawFeedItem, error) {
	raw, err := fetchDocument(ctx, f.client, src.URL, src.Key(), f.headers)
	if err != nil {
		return nil, err
	}

	items, err := feedparse.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Key(), err)
	}
	return items, nil
}
