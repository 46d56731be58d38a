package extract

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/cleaner"
	"github.com/use-agent/omniscrape/media"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/sites"
)

func staticPage(t *testing.T, url, html string) *page.Static {
	t.Helper()
	p, err := page.NewStatic(url, html)
	require.NoError(t, err)
	return p
}

// scrollingPage reports a growing document height until heights run out.
type scrollingPage struct {
	*page.Static
	heights []int
	scrolls int
}

func (p *scrollingPage) ScrollHeight(context.Context) (int, error) {
	h := p.heights[0]
	if len(p.heights) > 1 {
		p.heights = p.heights[1:]
	}
	return h, nil
}

func (p *scrollingPage) ScrollToBottom(context.Context) error {
	p.scrolls++
	return nil
}

type fakeResolver struct {
	info  *models.MediaInfo
	err   error
	auths []media.Auth
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, auth media.Auth) (*models.MediaInfo, error) {
	f.auths = append(f.auths, auth)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.info
	return &cp, nil
}

func (f *fakeResolver) Download(_ context.Context, _ string, auth media.Auth, dir string) (string, error) {
	f.auths = append(f.auths, auth)
	return filepath.Join(dir, "v.mp4"), f.err
}

func newTestSelector(t *testing.T) *Selector {
	reg, err := sites.DefaultRegistry()
	require.NoError(t, err)
	return NewSelector(reg,
		NewMediaExtractor(&fakeResolver{}),
		NewImageExtractor(time.Millisecond, 0),
		NewTextExtractor(nil),
	)
}

func TestSelectorLaws(t *testing.T) {
	s := newTestSelector(t)
	tests := []struct {
		url  string
		ct   models.ContentType
		want Kind
	}{
		{"https://example.com/", models.Article, KindText},
		{"https://example.com/", models.Unknown, KindText},
		{"https://example.com/", models.Product, KindText},
		{"https://example.com/", models.ImageGallery, KindImages},
		{"https://example.com/", models.VideoEmbed, KindMedia},
		{"https://example.com/", models.VideoPlatform, KindMedia},
		{"https://www.zolo.ca/toronto", models.VideoEmbed, KindSite},
		{"https://www.zolo.ca/toronto", models.Unknown, KindSite},
	}
	for _, tt := range tests {
		t.Run(tt.url+"/"+tt.ct.String(), func(t *testing.T) {
			c := s.Select(tt.url, models.PageAnalysis{ContentType: tt.ct})
			assert.Equal(t, tt.want, c.Kind)
			assert.NotNil(t, c.Extractor)
		})
	}
}

func TestCollectImagesDedupAndFilter(t *testing.T) {
	nodes := []page.Node{
		{Src: "https://x/a.png", Attrs: map[string]string{"alt": "first"}, Width: 200, Height: 200, Sized: true},
		{Src: "https://x/icon.png", Width: 32, Height: 32, Sized: true},
		{Src: "https://x/wide.png", Width: 400, Height: 50, Sized: true},
		{Src: "https://x/a.png", Attrs: map[string]string{"alt": "second"}, Width: 200, Height: 200, Sized: true},
		{Attrs: map[string]string{"data-src": "https://x/lazy.png"}},
		{Src: "data:image/gif;base64,R0l", Attrs: map[string]string{"data-src": "https://x/lazy2.png"}},
		{Attrs: map[string]string{}},
	}
	got := collectImages(nodes, DefaultMinSize)
	require.Len(t, got, 3)
	assert.Equal(t, "https://x/a.png", got[0].URL)
	assert.Equal(t, "first", got[0].Alt)
	assert.Equal(t, "https://x/lazy.png", got[1].URL)
	assert.Equal(t, "https://x/lazy2.png", got[2].URL)
}

func TestImageExtractorConverges(t *testing.T) {
	p := &scrollingPage{
		Static:  staticPage(t, "https://example.com/gallery", `<img src="/1.jpg"><img src="/2.jpg"><img src="/1.jpg">`),
		heights: []int{1000, 2000, 3000, 3000},
	}
	res, err := NewImageExtractor(time.Millisecond, 0).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 3, p.scrolls)
	assert.Equal(t, models.KindImages, res.Kind)
	require.Len(t, res.Images, 2)
	assert.Equal(t, "https://example.com/1.jpg", res.Images[0].URL)
}

func TestImageExtractorEmpty(t *testing.T) {
	_, err := NewImageExtractor(time.Millisecond, 0).Extract(context.Background(), staticPage(t, "https://example.com/", "<p>x</p>"))
	assert.Equal(t, models.ErrCodeExtractionEmpty, models.CodeOf(err))
}

func TestTextExtractorArticle(t *testing.T) {
	html := `<html><head><title>Site</title></head><body><nav><p>menu</p></nav>
<article><h1>Real Headline</h1><p>` + strings.Repeat("Body sentence here. ", 10) + `</p></article></body></html>`
	res, err := NewTextExtractor(cleaner.New()).Extract(context.Background(), staticPage(t, "https://example.com/a", html))
	require.NoError(t, err)
	require.NotNil(t, res.Text)
	assert.Equal(t, "Real Headline", res.Text.Title)
	assert.Contains(t, res.Text.Content, "Body sentence here.")
	assert.NotContains(t, res.Text.Content, "menu")
	assert.Contains(t, res.Text.HTML, "<h1>Real Headline</h1>")
	assert.Contains(t, res.Text.Markdown, "Real Headline")
	assert.Positive(t, res.Text.WordCount)
}

func TestTextExtractorParagraphFallback(t *testing.T) {
	html := `<html><head><title>Plain</title></head><body><p> one </p><p></p><p>two</p></body></html>`
	res, err := NewTextExtractor(nil).Extract(context.Background(), staticPage(t, "https://example.com/", html))
	require.NoError(t, err)
	assert.Equal(t, "Plain", res.Text.Title)
	assert.Equal(t, "one\n\ntwo", res.Text.Content)
	assert.Empty(t, res.Text.HTML)
}

func TestTextExtractorEmpty(t *testing.T) {
	_, err := NewTextExtractor(nil).Extract(context.Background(), staticPage(t, "https://example.com/", "<div></div>"))
	assert.Equal(t, models.ErrCodeExtractionEmpty, models.CodeOf(err))
}

func TestMediaExtractorSharesSession(t *testing.T) {
	r := &fakeResolver{info: &models.MediaInfo{Title: "clip"}}
	p := staticPage(t, "https://example.com/v", "<video></video>").
		WithSession("UA/1.0", []*http.Cookie{{Name: "sid", Value: "1"}})

	res, err := NewMediaExtractor(r).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyBrowser, res.Media.Strategy)
	require.Len(t, r.auths, 1)
	assert.Equal(t, "UA/1.0", r.auths[0].UserAgent)
	assert.Len(t, r.auths[0].Cookies, 1)
}

func TestMediaExtractorRawFallback(t *testing.T) {
	r := &fakeResolver{err: errors.New("unsupported")}
	p := staticPage(t, "https://example.com/v", `<title>Clip</title><video><source src="/media/clip.mp4"></video>`)

	res, err := NewMediaExtractor(r).Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyRaw, res.Media.Strategy)
	assert.Equal(t, "https://example.com/media/clip.mp4", res.Media.StreamURL)
	assert.Equal(t, "Clip", res.Media.Title)

	_, err = NewMediaExtractor(r).Extract(context.Background(), staticPage(t, "https://example.com/v", "<p>none</p>"))
	assert.Equal(t, models.ErrCodeMediaResolution, models.CodeOf(err))
}
