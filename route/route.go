// Package route decides whether a URL can skip the browser and go straight
// to the media resolver.
package route

import (
	"net/url"
	"strings"

	"github.com/use-agent/omniscrape/models"
)

// DefaultDirectDomains are the media sites handled without a browser.
var DefaultDirectDomains = []string{
	"youtube.com",
	"youtu.be",
	"instagram.com",
	"twitter.com",
	"x.com",
	"tiktok.com",
	"vimeo.com",
	"dailymotion.com",
	"twitch.tv",
	"facebook.com",
}

// Router matches URL hosts against an allow-list of media domains.
type Router struct {
	domains []string
}

// NewRouter returns a Router for domains. An empty list selects
// DefaultDirectDomains.
func NewRouter(domains []string) Router {
	if len(domains) == 0 {
		domains = DefaultDirectDomains
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = normalizeHost(d); d != "" {
			normalized = append(normalized, d)
		}
	}
	return Router{domains: normalized}
}

var defaultRouter = NewRouter(nil)

// Route classifies rawURL with the default allow-list.
func Route(rawURL string) models.RouteDecision {
	return defaultRouter.Route(rawURL)
}

// Route is total: anything that does not parse to a host goes to the browser.
func (r Router) Route(rawURL string) models.RouteDecision {
	host := Host(rawURL)
	if host == "" {
		return models.GenericBrowser
	}
	for _, d := range r.domains {
		if MatchDomain(host, d) {
			return models.DirectMedia
		}
	}
	return models.GenericBrowser
}

// Host returns the lowercased host of rawURL without a leading "www." or
// port. A missing scheme is treated as https. It returns "" when rawURL has
// no usable host.
func Host(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

// MatchDomain reports whether host is domain or one of its subdomains.
// Both sides are compared case-insensitively.
func MatchDomain(host, domain string) bool {
	host = normalizeHost(host)
	domain = normalizeHost(domain)
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func normalizeHost(h string) string {
	h = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
	return strings.TrimPrefix(h, "www.")
}
