// Package engine runs extractions: it routes a URL, opens it through a page
// source and drives detection, classification, extraction and the
// download/export handoff.
package engine

import (
	"context"

	"github.com/use-agent/omniscrape/page"
)

// Engine is a page source: something that can load a URL into a page.Page.
type Engine interface {
	// Name returns the engine identifier ("rod", "http").
	Name() string

	// Open loads url. The returned release func must be called once the
	// page is no longer needed.
	Open(ctx context.Context, url string) (page.Page, func(), error)
}
