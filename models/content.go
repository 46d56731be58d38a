package models

// ContentType is the classifier's verdict about what a page mainly carries.
// The declaration order is significant: ties between equal scores resolve
// to the earliest type.
type ContentType int

const (
	VideoPlatform ContentType = iota
	VideoEmbed
	Article
	ImageGallery
	Product
	Unknown
)

var contentTypeNames = [...]string{
	VideoPlatform: "video_platform",
	VideoEmbed:    "video_embed",
	Article:       "article",
	ImageGallery:  "image_gallery",
	Product:       "product",
	Unknown:       "unknown",
}

// AllContentTypes returns every content type in declaration order.
func AllContentTypes() []ContentType {
	return []ContentType{VideoPlatform, VideoEmbed, Article, ImageGallery, Product, Unknown}
}

func (c ContentType) String() string {
	if c < 0 || int(c) >= len(contentTypeNames) {
		return "unknown"
	}
	return contentTypeNames[c]
}

// MarshalText encodes the type by name so it reads well in JSON and as a map key.
func (c ContentType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText. Unrecognised names
// decode to Unknown.
func (c *ContentType) UnmarshalText(b []byte) error {
	*c = ParseContentType(string(b))
	return nil
}

// ParseContentType maps a name back to its ContentType.
func ParseContentType(s string) ContentType {
	for i, name := range contentTypeNames {
		if name == s {
			return ContentType(i)
		}
	}
	return Unknown
}

// PageAnalysis is the classifier's output for one page load. It is built
// once and never mutated afterwards.
type PageAnalysis struct {
	ContentType ContentType             `json:"content_type"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Scores      map[ContentType]float64 `json:"scores"`
}

// RouteDecision says whether a URL takes the media fast path or the browser.
type RouteDecision int

const (
	DirectMedia RouteDecision = iota
	GenericBrowser
)

func (r RouteDecision) String() string {
	if r == DirectMedia {
		return "direct_media"
	}
	return "generic_browser"
}

func (r RouteDecision) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// BlockSignal reports whether a CAPTCHA or challenge page was detected and
// which signature matched.
type BlockSignal struct {
	Blocked   bool   `json:"blocked"`
	Signature string `json:"signature,omitempty"`
}
