package sites

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// SourceURLColumn is appended to every record set.
const SourceURLColumn = "source_url"

// Field maps one record column to an element inside a card.
type Field struct {
	Name     string `mapstructure:"name" json:"name"`
	Selector string `mapstructure:"selector" json:"selector"`

	// Attr lists attributes to read, first non-empty wins. Empty means the
	// element's text.
	Attr []string `mapstructure:"attr" json:"attr,omitempty"`

	// Multi joins every match with ", " instead of taking the first.
	Multi bool `mapstructure:"multi" json:"multi,omitempty"`

	// Link marks the field as the record's source URL.
	Link bool `mapstructure:"link" json:"link,omitempty"`
}

// Schema describes a card-list site.
type Schema struct {
	Name    string   `mapstructure:"name" json:"name"`
	Domains []string `mapstructure:"domains" json:"domains"`
	Cards   string   `mapstructure:"cards" json:"cards"`
	Fields  []Field  `mapstructure:"fields" json:"fields"`

	// Wait bounds the wait for the first card.
	Wait time.Duration `mapstructure:"wait" json:"wait"`

	// Scrolls is how many times to scroll to the bottom before reading
	// cards, pausing ScrollPause each time.
	Scrolls     int           `mapstructure:"scrolls" json:"scrolls"`
	ScrollPause time.Duration `mapstructure:"scroll_pause" json:"scroll_pause"`

	// KeyFields, when set, derive a stable "key" column from those fields.
	KeyFields []string `mapstructure:"key_fields" json:"key_fields,omitempty"`
	KeyPrefix string   `mapstructure:"key_prefix" json:"key_prefix,omitempty"`
}

// SelectorScraper scrapes any site described by a Schema.
type SelectorScraper struct {
	schema Schema
}

func NewSelectorScraper(s Schema) (*SelectorScraper, error) {
	if s.Name == "" || len(s.Domains) == 0 || s.Cards == "" || len(s.Fields) == 0 {
		return nil, fmt.Errorf("sites: schema %q needs name, domains, cards and fields", s.Name)
	}
	return &SelectorScraper{schema: s}, nil
}

func (s *SelectorScraper) Name() string      { return s.schema.Name }
func (s *SelectorScraper) Domains() []string { return s.schema.Domains }

// Columns returns the output column order.
func (s *SelectorScraper) Columns() []string {
	var cols []string
	if len(s.schema.KeyFields) > 0 {
		cols = append(cols, "key")
	}
	for _, f := range s.schema.Fields {
		if !f.Link {
			cols = append(cols, f.Name)
		}
	}
	return append(cols, SourceURLColumn)
}

// Scrape waits for cards, scrolls to trigger lazy content, then parses each
// card's markup. A wait timeout is logged and scraping proceeds with
// whatever is present.
func (s *SelectorScraper) Scrape(ctx context.Context, p page.Page) (*models.RecordSet, error) {
	if err := p.WaitSelector(ctx, s.schema.Cards, s.schema.Wait); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("sites: timed out waiting for cards", "site", s.schema.Name, "error", err)
	}

	for i := 0; i < s.schema.Scrolls; i++ {
		if err := p.ScrollToBottom(ctx); err != nil {
			slog.Debug("sites: scroll failed", "site", s.schema.Name, "error", err)
			break
		}
		if err := sleep(ctx, s.schema.ScrollPause); err != nil {
			return nil, err
		}
	}

	cards, err := p.Nodes(ctx, s.schema.Cards)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "reading listing cards failed", err)
	}
	slog.Info("sites: cards found", "site", s.schema.Name, "count", len(cards))

	base, _ := url.Parse(p.URL())
	rs := &models.RecordSet{Site: s.schema.Name, Columns: s.Columns()}
	for i, card := range cards {
		rec, err := s.parseCard(card.OuterHTML, base)
		if err != nil {
			slog.Warn("sites: card parse failed", "site", s.schema.Name, "index", i, "error", err)
			continue
		}
		if rec[SourceURLColumn] == "" {
			rec[SourceURLColumn] = p.URL()
		}
		rs.Rows = append(rs.Rows, rec)
	}

	if len(rs.Rows) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeExtractionEmpty, "no listing cards found", nil)
	}
	return rs, nil
}

func (s *SelectorScraper) parseCard(outerHTML string, base *url.URL) (models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(outerHTML))
	if err != nil {
		return nil, err
	}

	rec := make(models.Record, len(s.schema.Fields)+2)
	for _, f := range s.schema.Fields {
		sel := doc.Find(f.Selector)
		var values []string
		sel.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if v := fieldValue(el, f, base); v != "" {
				values = append(values, v)
			}
			return f.Multi || len(values) == 0
		})
		value := strings.Join(values, ", ")
		if f.Link {
			rec[SourceURLColumn] = value
		} else {
			rec[f.Name] = value
		}
	}

	if len(s.schema.KeyFields) > 0 {
		rec["key"] = recordKey(s.schema.KeyPrefix, rec, s.schema.KeyFields)
	}
	return rec, nil
}

func fieldValue(el *goquery.Selection, f Field, base *url.URL) string {
	if len(f.Attr) == 0 {
		return normalizeSpace(el.Text())
	}
	for _, name := range f.Attr {
		v, ok := el.Attr(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		v = strings.TrimSpace(v)
		switch name {
		case "srcset", "data-srcset":
			v = strings.Fields(v)[0]
			fallthrough
		case "href", "src", "data-src":
			if base != nil {
				if u, err := base.Parse(v); err == nil {
					v = u.String()
				}
			}
		}
		return v
	}
	return ""
}

// recordKey hashes normalised key fields into a short stable identifier.
func recordKey(prefix string, rec models.Record, fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strings.ToLower(normalizeSpace(rec[f]))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "_")))
	return prefix + hex.EncodeToString(sum[:])[:6]
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
