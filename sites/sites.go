// Package sites holds per-site scrapers that bypass content classification
// for domains whose layout is known.
package sites

import (
	"context"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/route"
)

// Scraper extracts list-shaped records from a page of a known site.
type Scraper interface {
	Name() string
	Domains() []string
	Scrape(ctx context.Context, p page.Page) (*models.RecordSet, error)
}

// Registry maps domains to their scraper. It is read-only after construction.
type Registry struct {
	scrapers []Scraper
}

func NewRegistry(scrapers ...Scraper) *Registry {
	return &Registry{scrapers: scrapers}
}

// Register adds s. Later registrations win over earlier ones for the same
// domain.
func (r *Registry) Register(s Scraper) {
	r.scrapers = append(r.scrapers, s)
}

// Lookup returns the scraper whose domain matches pageURL's host.
func (r *Registry) Lookup(pageURL string) (Scraper, bool) {
	if r == nil {
		return nil, false
	}
	host := route.Host(pageURL)
	for i := len(r.scrapers) - 1; i >= 0; i-- {
		s := r.scrapers[i]
		for _, d := range s.Domains() {
			if route.MatchDomain(host, d) {
				return s, true
			}
		}
	}
	return nil, false
}

// Len returns the number of registered scrapers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.scrapers)
}
