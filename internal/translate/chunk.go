package translate

import (
	"strings"
	"unicode"
)

// Chunk splits text into pieces of at most limit runes, cutting after a
// sentence end when one exists in the second half of the window, otherwise
// at the last whitespace, and mid-word only when the window has neither.
// At most maxChunks pieces are returned; the rest of the text is dropped.
func Chunk(text string, limit, maxChunks int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}
	if maxChunks <= 0 {
		maxChunks = 1
	}

	rest := []rune(text)
	var chunks []string
	for len(rest) > 0 && len(chunks) < maxChunks {
		if len(rest) <= limit {
			chunks = append(chunks, string(rest))
			break
		}

		cut := boundary(rest, limit)
		piece := strings.TrimSpace(string(rest[:cut]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		rest = []rune(strings.TrimLeftFunc(string(rest[cut:]), unicode.IsSpace))
	}
	return chunks
}

// boundary returns where to cut text so the first piece fits in limit runes.
// len(text) is greater than limit.
func boundary(text []rune, limit int) int {
	for i := limit - 1; i >= limit/2; i-- {
		if isSentenceEnd(text[i]) && unicode.IsSpace(text[i+1]) {
			return i + 1
		}
	}
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(text[i]) {
			return i
		}
	}
	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。':
		return true
	}
	return false
}
