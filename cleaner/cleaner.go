// Package cleaner turns extracted article HTML into readable metadata,
// Markdown and size estimates.
package cleaner

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/omniscrape/models"
)

// Cleaner holds the shared Markdown converter. It is safe for concurrent use.
type Cleaner struct {
	md *converter.Converter
}

func New() *Cleaner {
	return &Cleaner{md: newMarkdownConverter()}
}

// Enrich fills the optional fields of t from the full page HTML. The core
// Title/Content/HTML already on t are never replaced, except that an empty
// title takes readability's.
func (c *Cleaner) Enrich(t *models.ArticleText, rawHTML, pageURL string) {
	article, ok := Readable(rawHTML, pageURL)
	if ok {
		t.Byline = article.Byline
		t.SiteName = article.SiteName
		t.Excerpt = strings.TrimSpace(article.Excerpt)
		t.Language = article.Language
		if t.Title == "" {
			t.Title = article.Title
		}
	}

	source := t.HTML
	if source == "" && ok {
		source = article.Content
	}
	if source != "" {
		md, err := ToMarkdown(c.md, source, pageURL)
		if err != nil {
			slog.Warn("cleaner: markdown conversion failed", "url", pageURL, "error", err)
		} else {
			t.Markdown = strings.TrimSpace(md)
		}
	}

	t.WordCount = CountWords(t.Content)
	tokenSource := t.Markdown
	if tokenSource == "" {
		tokenSource = t.Content
	}
	t.TokenCount = EstimateTokens(tokenSource)
}
