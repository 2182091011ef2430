// Package markup turns feed body markup into the restricted markdown subset
// the storefront renders, and into plain excerpts for translation.
package markup

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// domPass rewrites part of the parsed tree in place.
type domPass struct {
	name  string
	apply func(doc *goquery.Document)
}

// domPasses run in order; each one only sees what earlier passes left, so a
// later pass never re-introduces a construct an earlier one removed.
var domPasses = []domPass{
	{name: "drop-hidden", apply: dropHidden},
	{name: "images", apply: convertImages},
	{name: "figures", apply: convertFigures},
	{name: "links", apply: convertLinks},
	{name: "headings", apply: convertHeadings},
	{name: "blockquotes", apply: convertBlockquotes},
	{name: "code-blocks", apply: convertCodeBlocks},
	{name: "inline-code", apply: convertInlineCode},
	{name: "list-items", apply: convertListItems},
	{name: "blocks", apply: convertBlockBoundaries},
	{name: "line-breaks", apply: convertLineBreaks},
	{name: "emphasis", apply: convertEmphasis},
}

// Sanitize converts raw markup to markdown without any length cap.
func Sanitize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return finish(stripTags(raw))
	}
	for _, p := range domPasses {
		p.apply(doc)
	}
	return finish(doc.Text())
}

// finish runs the text stage: decode, normalize whitespace, trim.
func finish(text string) string {
	text = decodeEntities(text)
	text = normalizeWhitespace(text)
	return strings.TrimSpace(text)
}

func dropHidden(doc *goquery.Document) {
	doc.Find("script, style, noscript, template").Remove()
}

var frameworkAssetHints = []string{
	"/wp-includes/",
	"s.w.org",
	"/wp-content/plugins/",
}

var trackerHints = []string{
	"feeds.feedburner.com/~r/",
	"feedburner.com/~ff/",
	"stats.wordpress.com",
	"pixel.wp.com",
	"/pixel.gif",
	"/tracking/",
	"doubleclick.net",
}

func convertImages(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if skipImage(s, src) {
			s.Remove()
			return
		}
		alt := strings.Join(strings.Fields(s.AttrOr("alt", "")), " ")
		s.ReplaceWithNodes(textNode("\n\n![" + alt + "](" + src + ")\n\n"))
	})
}

// imageSource prefers lazy-loading attributes over the placeholder src.
func imageSource(s *goquery.Selection) string {
	for _, attr := range []string{"data-lazy-src", "data-src", "src"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func skipImage(s *goquery.Selection, src string) bool {
	if src == "" {
		return true
	}
	lower := strings.ToLower(src)
	if strings.HasPrefix(lower, "data:") {
		return true
	}
	for _, hint := range frameworkAssetHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	for _, hint := range trackerHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return isPixel(s.AttrOr("width", "")) || isPixel(s.AttrOr("height", ""))
}

func isPixel(dim string) bool {
	dim = strings.TrimSuffix(strings.TrimSpace(dim), "px")
	if dim == "" {
		return false
	}
	n, err := strconv.Atoi(dim)
	return err == nil && n <= 1
}

func convertFigures(doc *goquery.Document) {
	doc.Find("figure").Each(func(_ int, s *goquery.Selection) {
		captions := s.Find("figcaption")
		caption := strings.Join(strings.Fields(captions.Text()), " ")
		captions.Remove()

		suffix := "\n"
		if caption != "" {
			suffix = "*" + caption + "*\n"
			if !strings.HasSuffix(s.Text(), "\n") {
				suffix = "\n" + suffix
			}
		}
		unwrapWith(s.Nodes[0], "\n", suffix)
	})
}

func convertLinks(doc *goquery.Document) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.TrimSpace(s.Text()) == "" {
			unwrapWith(s.Nodes[0], "", "")
			return
		}
		unwrapWith(s.Nodes[0], "[", "]("+href+")")
	})
}

var headingMarkers = map[string]string{
	"h1": "##",
	"h2": "###",
	"h3": "####",
	"h4": "#####",
	"h5": "#####",
	"h6": "#####",
}

func convertHeadings(doc *goquery.Document) {
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		n := s.Nodes[0]
		unwrapWith(n, "\n\n"+headingMarkers[n.Data]+" ", "\n\n")
	})
}

func convertBlockquotes(doc *goquery.Document) {
	doc.Find("blockquote").Each(func(_ int, s *goquery.Selection) {
		var quoted []string
		for _, line := range strings.Split(s.Text(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				quoted = append(quoted, "> "+line)
			}
		}
		s.ReplaceWithNodes(textNode("\n" + strings.Join(quoted, "\n") + "\n"))
	})
}

func convertCodeBlocks(doc *goquery.Document) {
	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		code := strings.Trim(s.Text(), "\n")
		s.ReplaceWithNodes(textNode("\n```\n" + code + "\n```\n"))
	})
}

func convertInlineCode(doc *goquery.Document) {
	doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("`" + s.Text() + "`"))
	})
}

func convertListItems(doc *goquery.Document) {
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		unwrapWith(s.Nodes[0], "\n- ", "")
	})
}

func convertBlockBoundaries(doc *goquery.Document) {
	doc.Find("p, div, section, article").Each(func(_ int, s *goquery.Selection) {
		unwrapWith(s.Nodes[0], "\n\n", "\n\n")
	})
}

func convertLineBreaks(doc *goquery.Document) {
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithNodes(textNode("\n"))
	})
}

func convertEmphasis(doc *goquery.Document) {
	wrap := func(selector, marker string) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if strings.TrimSpace(s.Text()) == "" {
				unwrapWith(s.Nodes[0], "", "")
				return
			}
			unwrapWith(s.Nodes[0], marker, marker)
		})
	}
	wrap("strong, b", "**")
	wrap("em, i", "*")
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// unwrapWith replaces n by prefix, n's children and suffix, in place.
func unwrapWith(n *html.Node, prefix, suffix string) {
	parent := n.Parent
	if parent == nil {
		return
	}
	if prefix != "" {
		parent.InsertBefore(textNode(prefix), n)
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	if suffix != "" {
		parent.InsertBefore(textNode(suffix), n)
	}
	parent.RemoveChild(n)
}
