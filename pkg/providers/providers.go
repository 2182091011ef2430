// Package providers fetches upstream sources and turns their payloads into
// raw feed items.
package providers

import (
	"context"
	"strings"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
)

const (
	defaultUserAgent = "MinicomputerBlog/1.0"
	feedAccept       = "application/rss+xml, application/atom+xml, text/xml, */*"
)

// HTTPClient is the transport used by fetchers.
type HTTPClient = httpclient.Client

// Fetcher retrieves the raw items of one source type.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, src domain.FeedSource) ([]domain.RawFeedItem, error)
}

// FetcherRegistry resolves the fetcher for a source.
type FetcherRegistry interface {
	FetcherFor(src domain.FeedSource) (Fetcher, error)
}

// Headers returns the identifying request headers for feed requests.
func Headers(userAgent string) map[string]string {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     feedAccept,
	}
}
