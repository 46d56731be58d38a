package extract

import (
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/sites"
)

// Choice is the selected strategy. Extractor is never nil.
type Choice struct {
	Kind      Kind
	Extractor Extractor
}

// Selector maps a page analysis to an extractor. A registered site scraper
// always wins over the classifier's verdict.
type Selector struct {
	sites  *sites.Registry
	media  Extractor
	images Extractor
	text   Extractor
}

func NewSelector(reg *sites.Registry, media, images, text Extractor) *Selector {
	return &Selector{sites: reg, media: media, images: images, text: text}
}

func (s *Selector) Select(pageURL string, a models.PageAnalysis) Choice {
	if sc, ok := s.sites.Lookup(pageURL); ok {
		return Choice{Kind: KindSite, Extractor: NewSiteExtractor(sc)}
	}

	switch a.ContentType {
	case models.VideoPlatform, models.VideoEmbed:
		return Choice{Kind: KindMedia, Extractor: s.media}
	case models.ImageGallery:
		return Choice{Kind: KindImages, Extractor: s.images}
	case models.Article:
		return Choice{Kind: KindText, Extractor: s.text}
	case models.Product, models.Unknown:
		return Choice{Kind: KindText, Extractor: s.text}
	default:
		return Choice{Kind: KindText, Extractor: s.text}
	}
}
