package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/omniscrape/media"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// MediaExtractor resolves the page's video through the resolver, sharing the
// browser's cookies and user agent, and falls back to the raw <video> source.
type MediaExtractor struct {
	resolver media.Resolver
}

func NewMediaExtractor(r media.Resolver) *MediaExtractor {
	return &MediaExtractor{resolver: r}
}

func (e *MediaExtractor) Name() string { return string(KindMedia) }

func (e *MediaExtractor) Extract(ctx context.Context, p page.Page) (*models.ExtractionResult, error) {
	auth := sessionAuth(ctx, p)

	info, err := e.resolver.Resolve(ctx, p.URL(), auth)
	if err == nil {
		info.Strategy = models.StrategyBrowser
		return models.NewMediaResult(info), nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	slog.Warn("media: resolver failed, trying raw video source", "url", p.URL(), "error", err)

	src := rawVideoSource(ctx, p)
	if src == "" {
		return nil, models.NewScrapeError(models.ErrCodeMediaResolution, "no resolvable media and no video source on page", err)
	}
	title, _ := p.Title(ctx)
	return models.NewMediaResult(&models.MediaInfo{
		Title:     strings.TrimSpace(title),
		URL:       p.URL(),
		StreamURL: src,
		Strategy:  models.StrategyRaw,
	}), nil
}

// Download fetches the page's media with the session identity.
func (e *MediaExtractor) Download(ctx context.Context, p page.Page, dir string) (string, error) {
	return e.resolver.Download(ctx, p.URL(), sessionAuth(ctx, p), dir)
}

// sessionAuth exports the page's identity. Failures degrade to an
// anonymous resolver call.
func sessionAuth(ctx context.Context, p page.Page) media.Auth {
	var auth media.Auth
	if cookies, err := p.Cookies(ctx); err == nil {
		auth.Cookies = cookies
	} else {
		slog.Debug("media: reading cookies failed", "error", err)
	}
	if ua, err := p.UserAgent(ctx); err == nil {
		auth.UserAgent = ua
	}
	return auth
}

// rawVideoSource returns the first <video> (or nested <source>) URL.
func rawVideoSource(ctx context.Context, p page.Page) string {
	for _, sel := range []string{"video", "video source"} {
		nodes, err := p.Nodes(ctx, sel)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if n.Src != "" && !strings.HasPrefix(n.Src, "blob:") {
				return n.Src
			}
		}
	}
	return ""
}
