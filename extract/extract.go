// Package extract holds the content-type specific extraction strategies and
// the selector that picks one per page.
package extract

import (
	"context"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// Kind names an extraction strategy.
type Kind string

const (
	KindSite   Kind = "site"
	KindMedia  Kind = "media"
	KindImages Kind = "images"
	KindText   Kind = "text"
)

// Extractor produces one result from a loaded page.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, p page.Page) (*models.ExtractionResult, error)
}

// MediaDownloader is implemented by extractors that can fetch the media they
// resolved using the page's session.
type MediaDownloader interface {
	Download(ctx context.Context, p page.Page, dir string) (string, error)
}
