package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchDocument retrieves url and fails on any non-2xx status.
func fetchDocument(ctx context.Context, client HTTPClient, url, sourceKey string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceKey, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, fmt.Errorf("%s returned status %d body: %s", sourceKey, code, responseSnippet(body))
	}

	return body, nil
}

// publicationLayouts covers the date formats seen in news sitemaps.
var publicationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// parsePublicationDate normalizes a sitemap date to RFC 3339, or returns the
// trimmed input when no layout matches.
func parsePublicationDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, layout := range publicationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return raw
}
