package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor produces the stored body and the translation excerpt of an item.
type Extractor struct {
	BodyLimit    int
	ExcerptLimit int
}

// NewExtractor returns an Extractor with the given rune caps.
func NewExtractor(bodyLimit, excerptLimit int) *Extractor {
	return &Extractor{BodyLimit: bodyLimit, ExcerptLimit: excerptLimit}
}

// Extract returns the sanitized markdown body and the plain excerpt of raw.
// Both are derived from the same blob independently.
func (e *Extractor) Extract(raw string) (body, excerpt string) {
	body = strings.TrimSpace(Truncate(Sanitize(raw), e.BodyLimit))
	excerpt = strings.TrimSpace(Truncate(Plain(raw), e.ExcerptLimit))
	return body, excerpt
}

// SelectBody returns the first candidate holding more than whitespace.
// Callers pass candidates in priority order: full content, generic
// content, description or summary.
func SelectBody(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}

// Plain strips all markup from raw and decodes entities, leaving a single
// line of text. Script and style contents never reach the output.
func Plain(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapseSpaces(decodeEntities(stripTags(raw)))
	}
	dropHidden(doc)

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	return collapseSpaces(decodeEntities(strings.Join(parts, " ")))
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
