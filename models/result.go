package models

// ResultKind tags the active variant of an ExtractionResult.
type ResultKind string

const (
	KindMedia  ResultKind = "media"
	KindImages ResultKind = "images"
	KindText   ResultKind = "text"
	KindError  ResultKind = "error"
)

// Media resolution strategies recorded on MediaInfo.
const (
	StrategyDirect  = "direct"
	StrategyBrowser = "browser"
	StrategyRaw     = "raw"
)

// ExtractionResult is a tagged union: exactly one of the payload fields is
// set, matching Kind.
type ExtractionResult struct {
	Kind    ResultKind   `json:"kind"`
	Media   *MediaInfo   `json:"media,omitempty"`
	Images  []ImageRef   `json:"images,omitempty"`
	Text    *ArticleText `json:"text,omitempty"`
	Records *RecordSet   `json:"records,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// MediaInfo describes a resolved video or audio resource.
type MediaInfo struct {
	Title     string   `json:"title"`
	ID        string   `json:"id,omitempty"`
	URL       string   `json:"url"`
	StreamURL string   `json:"stream_url,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Duration  float64  `json:"duration,omitempty"`
	Uploader  string   `json:"uploader,omitempty"`
	ViewCount int64    `json:"view_count,omitempty"`
	Formats   []Format `json:"formats,omitempty"`
	Strategy  string   `json:"strategy"`
	// FilePath is set once the media has been downloaded.
	FilePath string `json:"file_path,omitempty"`
}

// Format is one downloadable rendition of a media resource.
type Format struct {
	ID         string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution,omitempty"`
	Note       string `json:"format_note,omitempty"`
}

// ImageRef is one image found on a gallery page.
type ImageRef struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ArticleText is the main textual content of a page.
type ArticleText struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	HTML       string `json:"html,omitempty"`
	Markdown   string `json:"markdown,omitempty"`
	Byline     string `json:"byline,omitempty"`
	SiteName   string `json:"site_name,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Language   string `json:"language,omitempty"`
	WordCount  int    `json:"word_count"`
	TokenCount int    `json:"token_estimate"`
}

// Record is one row of list-shaped data scraped by a site scraper.
type Record map[string]string

// RecordSet is tabular output with a stable column order.
type RecordSet struct {
	Site    string   `json:"site"`
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

func NewMediaResult(m *MediaInfo) *ExtractionResult {
	return &ExtractionResult{Kind: KindMedia, Media: m}
}

func NewImagesResult(images []ImageRef) *ExtractionResult {
	return &ExtractionResult{Kind: KindImages, Images: images}
}

func NewTextResult(t *ArticleText) *ExtractionResult {
	return &ExtractionResult{Kind: KindText, Text: t}
}

// NewRecordsResult wraps site-scraper output. It shares the text kind since
// both are exported as data documents.
func NewRecordsResult(rs *RecordSet) *ExtractionResult {
	return &ExtractionResult{Kind: KindText, Records: rs}
}

// NewErrorResult converts err into the error variant.
func NewErrorResult(err error) *ExtractionResult {
	return &ExtractionResult{Kind: KindError, Error: AsScrapeError(err).ToDetail()}
}

// IsError reports whether the result is the error variant.
func (r *ExtractionResult) IsError() bool {
	return r == nil || r.Kind == KindError
}
