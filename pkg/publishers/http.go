package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/minicomputer-shop/blog-harvester/pkg/httpclient"
)

const maxErrorSnippet = 256

// httpPublisher sends the document body to an HTTP endpoint.
type httpPublisher struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  httpclient.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return newHTTPPublisherWithClient(cfg, httpclient.NewRestyClient(timeout), log), nil
}

func newHTTPPublisherWithClient(cfg PublisherConfig, client httpclient.Client, log Logger) *httpPublisher {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	return &httpPublisher{
		id:      cfg.ID,
		url:     cfg.HTTP.URL,
		method:  method,
		headers: headers,
		client:  client,
		log:     ensureLogger(log),
	}
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the payload body as-is.
func (p *httpPublisher) Publish(ctx context.Context, payload Payload) error {
	headers := make(map[string]string, len(p.headers)+1)
	for k, v := range p.headers {
		headers[k] = v
	}
	headers["X-Blog-Document-Kind"] = payload.Kind()

	resp, err := p.client.Do(ctx, p.method, p.url, headers, payload.Body)
	if err != nil {
		return fmt.Errorf("http publisher %s: %w", p.id, err)
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		body := resp.Body()
		if len(body) > maxErrorSnippet {
			body = body[:maxErrorSnippet]
		}
		return fmt.Errorf("http publisher %s: status %d: %s", p.id, code, string(body))
	}

	p.log.DebugObj("document delivered", "publisher_http_delivery", map[string]any{
		"url":    p.url,
		"status": resp.StatusCode(),
		"kind":   payload.Kind(),
	})
	return nil
}
