// Package classify scores a loaded page against each content type and picks
// the most likely one.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/route"
)

// videoPlatforms are hosts whose pages are videos regardless of DOM shape.
var videoPlatforms = []string{"youtube.com", "vimeo.com", "dailymotion.com"}

// Scoring weights.
const (
	platformWeight      = 10.0
	videoWeight         = 2.0
	imageWeight         = 0.2
	imageThreshold      = 10
	articleWeight       = 5.0
	paragraphWeight     = 0.1
	paragraphThreshold  = 20
	productWeight       = 10.0
	productSchemaMarker = "Product"
)

// Signals are the raw DOM observations the scores are computed from.
type Signals struct {
	Videos      int
	Images      int
	Articles    int
	Paragraphs  int
	LDJSON      []string
	Title       string
	Description string
}

// Gather reads Signals from p. Failed reads degrade to zero values so that
// classification always completes.
func Gather(ctx context.Context, p page.Page) Signals {
	count := func(sel string) int {
		n, err := p.Count(ctx, sel)
		if err != nil {
			slog.Debug("classify: count failed", "selector", sel, "error", err)
			return 0
		}
		return n
	}

	s := Signals{
		Videos:     count("video"),
		Images:     count("img"),
		Articles:   count("article"),
		Paragraphs: count("p"),
	}

	if nodes, err := p.Nodes(ctx, "script[type='application/ld+json']"); err == nil {
		for _, n := range nodes {
			s.LDJSON = append(s.LDJSON, n.Text)
		}
	}
	if title, err := p.Title(ctx); err == nil {
		s.Title = strings.TrimSpace(title)
	}
	if nodes, err := p.Nodes(ctx, "meta[name='description']"); err == nil && len(nodes) > 0 {
		s.Description = strings.TrimSpace(nodes[0].Attr("content"))
	}
	return s
}

// Score computes the additive score of every content type. It is pure.
func Score(pageURL string, s Signals) map[models.ContentType]float64 {
	scores := make(map[models.ContentType]float64, len(models.AllContentTypes()))
	for _, ct := range models.AllContentTypes() {
		scores[ct] = 0
	}

	host := route.Host(pageURL)
	for _, d := range videoPlatforms {
		if route.MatchDomain(host, d) {
			scores[models.VideoPlatform] += platformWeight
			break
		}
	}

	scores[models.VideoEmbed] += float64(s.Videos) * videoWeight

	if s.Images > imageThreshold {
		scores[models.ImageGallery] += float64(s.Images) * imageWeight
	}

	if s.Articles > 0 {
		scores[models.Article] += articleWeight
	}
	if s.Paragraphs > paragraphThreshold {
		scores[models.Article] += float64(s.Paragraphs) * paragraphWeight
	}

	for _, doc := range s.LDJSON {
		if strings.Contains(doc, productSchemaMarker) {
			scores[models.Product] += productWeight
			break
		}
	}
	return scores
}

// Decide picks the first maximum in declaration order, then applies the
// host override. With every score at zero the first declared type wins.
func Decide(pageURL string, scores map[models.ContentType]float64) models.ContentType {
	types := models.AllContentTypes()
	best := types[0]
	bestScore := scores[best]
	for _, ct := range types[1:] {
		if sc := scores[ct]; sc > bestScore {
			best, bestScore = ct, sc
		}
	}

	if route.MatchDomain(route.Host(pageURL), "youtube.com") {
		return models.VideoPlatform
	}
	return best
}

// Classifier turns a page into a PageAnalysis.
type Classifier struct{}

// Classify gathers signals from p, scores them and decides.
func (Classifier) Classify(ctx context.Context, p page.Page) models.PageAnalysis {
	s := Gather(ctx, p)
	scores := Score(p.URL(), s)
	ct := Decide(p.URL(), scores)

	slog.Info("page classified",
		"url", p.URL(),
		"type", ct.String(),
		"videos", s.Videos,
		"images", s.Images,
		"paragraphs", s.Paragraphs,
	)
	return models.PageAnalysis{
		ContentType: ct,
		Title:       s.Title,
		Description: s.Description,
		Scores:      scores,
	}
}
