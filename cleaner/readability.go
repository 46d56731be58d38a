package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be trusted.
const minContentLength = 50

// Readable runs the Mozilla Readability algorithm on rawHTML. The bool is
// false when the algorithm could not locate main content; the returned
// Article is then zero.
func Readable(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return readability.Article{}, false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return readability.Article{}, false
	}

	return article, true
}
