package digest

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxSnippetLength = 280

// Extractor produces a readable text snippet from a fetched article page.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	snippet := strings.TrimSpace(article.Excerpt)
	if snippet == "" {
		snippet = strings.Join(strings.Fields(article.TextContent), " ")
	}

	if snippet == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"snippet_length", len(snippet))

	return truncateSnippet(snippet, maxSnippetLength), nil
}

func truncateSnippet(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
