package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const maxDecodeRounds = 8

var (
	tagPattern       = regexp.MustCompile(`<[A-Za-z/!?][^<>]*>`)
	lineEdgeSpaces   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	excessNewlines   = regexp.MustCompile(`\n{4,}`)
	horizontalSpaces = regexp.MustCompile(`[ \t\f\r\v]+`)
	anyWhitespace    = regexp.MustCompile(`\s+`)

	// NBSP becomes a plain space; zero-width space and BOM vanish.
	invisibleReplacer = strings.NewReplacer("\u00a0", " ", "\u200b", "", "\ufeff", "")
)

// decodeEntities decodes HTML entities until the text stops changing, dropping
// tag-like sequences that only appear after decoding. Decoding is bounded;
// tag stripping is not, so the result never contains markup.
func decodeEntities(s string) string {
	for i := 0; i < maxDecodeRounds; i++ {
		next := stripTags(invisibleReplacer.Replace(html.UnescapeString(s)))
		if next == s {
			return s
		}
		s = next
	}
	// Every strip shortens s, so this terminates.
	for {
		next := stripTags(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalSpaces.ReplaceAllString(s, " ")
	s = lineEdgeSpaces.ReplaceAllString(s, "\n")
	return excessNewlines.ReplaceAllString(s, "\n\n")
}

// collapseSpaces folds every whitespace run, newlines included, to one space.
func collapseSpaces(s string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes. A non-positive n disables the cap.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
