package sites

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

const listingsHTML = `<html><body>
<article class="card-listing">
  <a href="/toronto-real-estate/1-main-st">
    <img data-src="https://img.example/1.jpg">
    <h3>1 Main St,
       Toronto, ON</h3>
  </a>
  <span class="price">$900,000</span>
  <ul class="card-listing--values"><li>3 bd</li><li>2 ba</li></ul>
</article>
<div class="listing-card-wide">
  <span itemprop="streetAddress">2 King St</span>
  <span itemprop="price">$1,200,000</span>
</div>
</body></html>`

func TestSelectorScraperZolo(t *testing.T) {
	s, err := NewSelectorScraper(ZoloSchema)
	require.NoError(t, err)
	s.schema.ScrollPause = 0

	p, err := page.NewStatic("https://www.zolo.ca/toronto-real-estate", listingsHTML)
	require.NoError(t, err)

	rs, err := s.Scrape(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, []string{"key", "address", "price", "amenities", "image", SourceURLColumn}, rs.Columns)

	first := rs.Rows[0]
	assert.Equal(t, "1 Main St, Toronto, ON", first["address"])
	assert.Equal(t, "$900,000", first["price"])
	assert.Equal(t, "3 bd, 2 ba", first["amenities"])
	assert.Equal(t, "https://img.example/1.jpg", first["image"])
	assert.Equal(t, "https://www.zolo.ca/toronto-real-estate/1-main-st", first[SourceURLColumn])
	assert.Regexp(t, `^ZO-[0-9a-f]{6}$`, first["key"])

	second := rs.Rows[1]
	assert.Equal(t, "2 King St", second["address"])
	assert.Equal(t, "https://www.zolo.ca/toronto-real-estate", second[SourceURLColumn])
	assert.NotEqual(t, first["key"], second["key"])
}

func TestSelectorScraperNoCards(t *testing.T) {
	s, err := NewSelectorScraper(Schema{
		Name: "empty", Domains: []string{"example.com"}, Cards: "li.item",
		Fields: []Field{{Name: "t", Selector: "span"}}, Wait: time.Millisecond,
	})
	require.NoError(t, err)
	p, err := page.NewStatic("https://example.com/", "<p>nothing</p>")
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), p)
	assert.Equal(t, models.ErrCodeExtractionEmpty, models.CodeOf(err))
}

func TestRegistryLookup(t *testing.T) {
	r, err := DefaultRegistry(
		Schema{Name: "shop", Domains: []string{"shop.example"}, Cards: ".c", Fields: []Field{{Name: "n", Selector: ".n"}}},
		Schema{Name: "broken"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	s, ok := r.Lookup("https://www.zolo.ca/map")
	require.True(t, ok)
	assert.Equal(t, "zolo", s.Name())

	s, ok = r.Lookup("https://eu.shop.example/list")
	require.True(t, ok)
	assert.Equal(t, "shop", s.Name())

	_, ok = r.Lookup("https://notzolo.ca/")
	assert.False(t, ok)
}
