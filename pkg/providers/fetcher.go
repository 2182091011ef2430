package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
)

const defaultFetchTimeout = 8 * time.Second

type fetcherRegistry struct {
	fetchers map[string]Fetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.ID()))] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given source based on its type.
func (r *fetcherRegistry) FetcherFor(src domain.FeedSource) (Fetcher, error) {
	if strings.TrimSpace(src.URL) == "" {
		return nil, fmt.Errorf("source %q url is empty", src.Key())
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	key := src.SourceType()
	if f, ok := r.fetchers[key]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for source type %q", key)
}

// DefaultHTTPClient returns the resty client used by fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(defaultFetchTimeout) }

// DefaultFetcherRegistry wires up the known source types.
func DefaultFetcherRegistry(client HTTPClient, userAgent string) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewFeedFetcher(client, userAgent),
		NewNewsSitemapFetcher(client, userAgent),
	)
}
