// Package feedparse normalizes RSS and Atom payloads into raw feed items.
package feedparse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/minicomputer-shop/blog-harvester/internal/domain"
	"github.com/minicomputer-shop/blog-harvester/internal/markup"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

// ErrUnreadable is returned when neither RSS nor Atom can read a payload.
var ErrUnreadable = errors.New("payload is neither rss nor atom")

// Parse reads payload as RSS first and falls back to Atom when RSS yields
// nothing. Entries without a title or link are dropped.
func Parse(payload []byte) ([]domain.RawFeedItem, error) {
	items, rssErr := parseRSS(payload)
	if len(items) > 0 {
		return items, nil
	}

	items, atomErr := parseAtom(payload)
	if len(items) > 0 {
		return items, nil
	}
	if rssErr != nil && atomErr != nil {
		return nil, fmt.Errorf("%w: rss: %v; atom: %v", ErrUnreadable, rssErr, atomErr)
	}
	return nil, nil
}

func parseRSS(payload []byte) ([]domain.RawFeedItem, error) {
	feed, err := (&rss.Parser{}).Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawFeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		item := domain.RawFeedItem{
			Title:     cleanTitle(it.Title),
			Link:      strings.TrimSpace(it.Link),
			Body:      markup.SelectBody(it.Content, it.Custom["content"], it.Description),
			ImageURL:  rssImage(it),
			Published: strings.TrimSpace(it.PubDate),
		}
		if item.Link == "" && it.GUID != nil && it.GUID.IsPermalink != "false" {
			item.Link = permalink(it.GUID.Value)
		}
		if accept(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func parseAtom(payload []byte) ([]domain.RawFeedItem, error) {
	feed, err := (&atom.Parser{}).Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawFeedItem, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if e == nil {
			continue
		}
		var content string
		if e.Content != nil {
			content = e.Content.Value
		}
		published := e.Published
		if strings.TrimSpace(published) == "" {
			published = e.Updated
		}
		item := domain.RawFeedItem{
			Title:     cleanTitle(e.Title),
			Link:      atomLink(e.Links),
			Body:      markup.SelectBody(content, e.Summary),
			ImageURL:  atomImage(e),
			Published: strings.TrimSpace(published),
		}
		if accept(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func accept(item domain.RawFeedItem) bool {
	return item.Title != "" && item.Link != ""
}

// cleanTitle strips markup and decodes entities; titles are never markdown.
func cleanTitle(raw string) string {
	return markup.Plain(raw)
}

func permalink(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return ""
}

func atomLink(links []*atom.Link) string {
	var fallback string
	for _, l := range links {
		if l == nil || strings.TrimSpace(l.Href) == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(l.Rel)) {
		case "", "alternate":
			return strings.TrimSpace(l.Href)
		case "self", "enclosure", "replies", "edit":
		default:
			if fallback == "" {
				fallback = strings.TrimSpace(l.Href)
			}
		}
	}
	return fallback
}

func rssImage(it *rss.Item) string {
	if u := mediaImage(it.Extensions); u != "" {
		return u
	}
	enclosures := it.Enclosures
	if len(enclosures) == 0 && it.Enclosure != nil {
		enclosures = []*rss.Enclosure{it.Enclosure}
	}
	for _, enc := range enclosures {
		if enc != nil && isImageType(enc.Type) && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

func atomImage(e *atom.Entry) string {
	if u := mediaImage(e.Extensions); u != "" {
		return u
	}
	for _, l := range e.Links {
		if l != nil && strings.EqualFold(l.Rel, "enclosure") && isImageType(l.Type) {
			return strings.TrimSpace(l.Href)
		}
	}
	return ""
}

// mediaImage looks at media:thumbnail, then image-typed media:content,
// including thumbnails nested in media:group.
func mediaImage(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	if u := firstMediaURL(media); u != "" {
		return u
	}
	for _, group := range media["group"] {
		if u := firstMediaURL(group.Children); u != "" {
			return u
		}
	}
	return ""
}

func firstMediaURL(media map[string][]ext.Extension) string {
	for _, thumb := range media["thumbnail"] {
		if u := strings.TrimSpace(thumb.Attrs["url"]); u != "" {
			return u
		}
	}
	for _, content := range media["content"] {
		u := strings.TrimSpace(content.Attrs["url"])
		if u == "" {
			continue
		}
		if isImageType(content.Attrs["type"]) || strings.EqualFold(content.Attrs["medium"], "image") {
			return u
		}
	}
	return ""
}

func isImageType(t string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(t)), "image/")
}
