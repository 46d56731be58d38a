package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// Defaults for ImageExtractor.
const (
	DefaultSettle  = time.Second
	DefaultMinSize = 50
)

// ImageExtractor scrolls until lazy loading converges, then collects
// distinct, non-trivial images.
type ImageExtractor struct {
	settle  time.Duration
	minSize int
}

// NewImageExtractor returns an extractor pausing settle after each scroll
// and dropping images whose known footprint is at most minSize pixels on a
// side. Zero values select the defaults.
func NewImageExtractor(settle time.Duration, minSize int) *ImageExtractor {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &ImageExtractor{settle: settle, minSize: minSize}
}

func (e *ImageExtractor) Name() string { return string(KindImages) }

func (e *ImageExtractor) Extract(ctx context.Context, p page.Page) (*models.ExtractionResult, error) {
	e.converge(ctx, p)

	nodes, err := p.Nodes(ctx, "img")
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "reading images failed", err)
	}

	images := collectImages(nodes, e.minSize)
	slog.Info("images collected", "url", p.URL(), "found", len(nodes), "kept", len(images))
	if len(images) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "no images found", nil)
	}
	return models.NewImagesResult(images), nil
}

// converge scrolls to the bottom until the document height stops growing.
// There is no iteration cap; cancellation keeps whatever has loaded.
func (e *ImageExtractor) converge(ctx context.Context, p page.Page) {
	last, err := p.ScrollHeight(ctx)
	if err != nil {
		slog.Debug("images: scroll height unavailable", "error", err)
		return
	}
	for {
		if err := p.ScrollToBottom(ctx); err != nil {
			slog.Debug("images: scroll failed", "error", err)
			return
		}
		select {
		case <-time.After(e.settle):
		case <-ctx.Done():
			return
		}
		height, err := p.ScrollHeight(ctx)
		if err != nil || height == last {
			return
		}
		last = height
	}
}

// collectImages applies the size filter and de-duplicates by URL, keeping
// the first occurrence.
func collectImages(nodes []page.Node, minSize int) []models.ImageRef {
	seen := make(map[string]struct{}, len(nodes))
	var images []models.ImageRef
	for _, n := range nodes {
		if n.Sized && (n.Width <= minSize || n.Height <= minSize) {
			continue
		}
		u := strings.TrimSpace(n.Src)
		if u == "" || strings.HasPrefix(u, "data:") {
			u = strings.TrimSpace(n.Attr("data-src"))
		}
		if u == "" || strings.HasPrefix(u, "data:") {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		images = append(images, models.ImageRef{
			URL:    u,
			Alt:    n.Attr("alt"),
			Width:  n.Width,
			Height: n.Height,
		})
	}
	return images
}
