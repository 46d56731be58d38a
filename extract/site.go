package extract

import (
	"context"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/sites"
)

// SiteExtractor adapts a site scraper to the Extractor contract.
type SiteExtractor struct {
	scraper sites.Scraper
}

func NewSiteExtractor(s sites.Scraper) *SiteExtractor {
	return &SiteExtractor{scraper: s}
}

func (e *SiteExtractor) Name() string { return "site:" + e.scraper.Name() }

func (e *SiteExtractor) Extract(ctx context.Context, p page.Page) (*models.ExtractionResult, error) {
	rs, err := e.scraper.Scrape(ctx, p)
	if err != nil {
		return nil, err
	}
	return models.NewRecordsResult(rs), nil
}
