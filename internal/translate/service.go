package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
	"golang.org/x/net/html"
)

const DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// ErrMalformedResponse is returned when the service answers with a payload
// that does not carry translated segments.
var ErrMalformedResponse = errors.New("malformed translation response")

// Service translates one piece of text.
type Service interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// GoogleService calls the public gtx translate endpoint.
type GoogleService struct {
	client    httpclient.Client
	endpoint  string
	userAgent string
}

// NewGoogleService builds a GoogleService. An empty endpoint selects the
// public one.
func NewGoogleService(client httpclient.Client, endpoint, userAgent string) *GoogleService {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &GoogleService{client: client, endpoint: endpoint, userAgent: userAgent}
}

// Translate performs exactly one request; retries belong to the caller.
func (s *GoogleService) Translate(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	headers := map[string]string{"Accept": "application/json"}
	if s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}

	resp, err := s.client.Get(ctx, s.endpoint+"?"+q.Encode(), headers)
	if err != nil {
		return "", err
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", fmt.Errorf("translate %s->%s returned status %d", source, target, code)
	}

	return parseSegments(resp.Body())
}

// parseSegments joins element [0] of every segment in data[0], entity
// decoded.
func parseSegments(body []byte) (string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(data) == 0 {
		return "", ErrMalformedResponse
	}

	var segments [][]any
	if err := json.Unmarshal(data[0], &segments); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}

	out := strings.TrimSpace(html.UnescapeString(b.String()))
	if out == "" {
		return "", ErrMalformedResponse
	}
	return out, nil
}
