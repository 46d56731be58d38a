package extract

import (
	"context"
	"strings"

	"github.com/use-agent/omniscrape/cleaner"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// TextExtractor reads the page's main text: the first <article> if any,
// otherwise every paragraph.
type TextExtractor struct {
	cleaner *cleaner.Cleaner
}

// NewTextExtractor returns a TextExtractor. A nil cleaner skips enrichment.
func NewTextExtractor(c *cleaner.Cleaner) *TextExtractor {
	return &TextExtractor{cleaner: c}
}

func (e *TextExtractor) Name() string { return string(KindText) }

func (e *TextExtractor) Extract(ctx context.Context, p page.Page) (*models.ExtractionResult, error) {
	pageTitle, _ := p.Title(ctx)
	pageTitle = strings.TrimSpace(pageTitle)

	text := &models.ArticleText{}
	articles, err := p.Nodes(ctx, "article")
	if err == nil && len(articles) > 0 {
		text.Content = strings.TrimSpace(articles[0].Text)
		text.HTML = strings.TrimSpace(articles[0].HTML)
		text.Title = pageTitle
		if headings, err := p.Nodes(ctx, "article h1"); err == nil && len(headings) > 0 {
			if h := strings.TrimSpace(headings[0].Text); h != "" {
				text.Title = h
			}
		}
	} else {
		paragraphs, err := p.Nodes(ctx, "p")
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "reading paragraphs failed", err)
		}
		parts := make([]string, 0, len(paragraphs))
		for _, n := range paragraphs {
			if t := strings.TrimSpace(n.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text.Content = strings.Join(parts, "\n\n")
		text.Title = pageTitle
	}

	if text.Content == "" {
		return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "page has no readable text", nil)
	}

	if e.cleaner != nil {
		if rawHTML, err := p.HTML(ctx); err == nil {
			e.cleaner.Enrich(text, rawHTML, p.URL())
		}
	}
	return models.NewTextResult(text), nil
}
