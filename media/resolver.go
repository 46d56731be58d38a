// Package media resolves and downloads video/audio resources through yt-dlp.
package media

import (
	"context"
	"net/http"

	"github.com/use-agent/omniscrape/models"
)

// Auth carries the browser session identity handed to the resolver so that
// it sees the same site the browser saw.
type Auth struct {
	Cookies   []*http.Cookie
	UserAgent string
}

// Resolver turns a media page URL into stream metadata and can fetch the
// media itself.
type Resolver interface {
	Resolve(ctx context.Context, url string, auth Auth) (*models.MediaInfo, error)

	// Download saves the best available rendition into dir and returns the
	// written file path.
	Download(ctx context.Context, url string, auth Auth, dir string) (string, error)
}

// DirectHandler is the browserless fast path for allow-listed media sites.
type DirectHandler struct {
	resolver Resolver
}

func NewDirectHandler(r Resolver) *DirectHandler {
	return &DirectHandler{resolver: r}
}

// Resolve resolves url with no session identity.
func (h *DirectHandler) Resolve(ctx context.Context, url string) (*models.MediaInfo, error) {
	info, err := h.resolver.Resolve(ctx, url, Auth{})
	if err != nil {
		return nil, err
	}
	info.Strategy = models.StrategyDirect
	return info, nil
}

// Download fetches url into dir with no session identity.
func (h *DirectHandler) Download(ctx context.Context, url, dir string) (string, error) {
	return h.resolver.Download(ctx, url, Auth{}, dir)
}
