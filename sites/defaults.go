package sites

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// errNoDefault is returned when a built-in schema fails validation.
var errNoDefault = errors.New("sites: invalid built-in schema")

// ZoloSchema scrapes zolo.ca listing cards.
var ZoloSchema = Schema{
	Name:    "zolo",
	Domains: []string{"zolo.ca"},
	Cards:   "article.card-listing, div.card-listing, div[class*='listing-card']",
	Fields: []Field{
		{Name: "address", Selector: ".address, span[itemprop='streetAddress'], h3"},
		{Name: "price", Selector: "span[itemprop='price'], .price"},
		{Name: "amenities", Selector: "ul.card-listing--values li, .features li", Multi: true},
		{Name: "image", Selector: "img", Attr: []string{"src", "data-src", "data-srcset"}},
		{Name: "link", Selector: "a[href]", Attr: []string{"href"}, Link: true},
	},
	Wait:        30 * time.Second,
	Scrolls:     3,
	ScrollPause: 2 * time.Second,
	KeyFields:   []string{"address", "price"},
	KeyPrefix:   "ZO-",
}

// DefaultRegistry returns a registry with the built-in schemas followed by
// extra. Invalid extra schemas are logged and skipped.
func DefaultRegistry(extra ...Schema) (*Registry, error) {
	zolo, err := NewSelectorScraper(ZoloSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoDefault, err)
	}
	r := NewRegistry(zolo)
	for _, s := range extra {
		sc, err := NewSelectorScraper(s)
		if err != nil {
			slog.Warn("sites: skipping invalid site schema", "name", s.Name, "error", err)
			continue
		}
		r.Register(sc)
	}
	return r, nil
}
