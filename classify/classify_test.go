package classify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

func TestScoreVideoEmbedMonotone(t *testing.T) {
	prev := -1.0
	for n := 0; n <= 10; n++ {
		s := Score("https://example.com/", Signals{Videos: n})
		assert.GreaterOrEqual(t, s[models.VideoEmbed], prev)
		prev = s[models.VideoEmbed]
	}
	assert.Equal(t, 20.0, prev)
}

func TestScoreThresholds(t *testing.T) {
	s := Score("https://example.com/", Signals{Images: 10, Paragraphs: 20})
	assert.Zero(t, s[models.ImageGallery])
	assert.Zero(t, s[models.Article])

	s = Score("https://example.com/", Signals{Images: 11, Paragraphs: 21, Articles: 1})
	assert.InDelta(t, 2.2, s[models.ImageGallery], 1e-9)
	assert.InDelta(t, 7.1, s[models.Article], 1e-9)
}

func TestScoreProductAndPlatform(t *testing.T) {
	s := Score("https://player.vimeo.com/video/1", Signals{
		LDJSON: []string{`{"@type":"Organization"}`, `{"@type":"Product","name":"x"}`},
	})
	assert.Equal(t, 10.0, s[models.Product])
	assert.Equal(t, 10.0, s[models.VideoPlatform])
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		scores map[models.ContentType]float64
		want   models.ContentType
	}{
		{"all zero takes first declared type", "https://example.com/blank", map[models.ContentType]float64{}, models.VideoPlatform},
		{"article wins", "https://example.com/", map[models.ContentType]float64{models.Article: 7, models.ImageGallery: 3}, models.Article},
		{"tie takes earlier type", "https://example.com/", map[models.ContentType]float64{models.Product: 10, models.VideoPlatform: 10}, models.VideoPlatform},
		{"youtube override", "https://www.youtube.com/watch?v=1", map[models.ContentType]float64{models.Article: 50}, models.VideoPlatform},
		{"youtube override with no evidence", "https://youtube.com/", map[models.ContentType]float64{}, models.VideoPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.url, tt.scores))
		})
	}
}

func TestClassifyArticlePage(t *testing.T) {
	html := `<html><head><title>News</title><meta name="description" content="Daily news"></head><body><article><h1>Headline</h1>` +
		strings.Repeat("<p>Paragraph text.</p>", 25) + `</article></body></html>`
	p, err := page.NewStatic("https://news.example.com/story", html)
	require.NoError(t, err)

	a := Classifier{}.Classify(context.Background(), p)
	assert.Equal(t, models.Article, a.ContentType)
	assert.Equal(t, "News", a.Title)
	assert.Equal(t, "Daily news", a.Description)
	assert.InDelta(t, 7.5, a.Scores[models.Article], 1e-9)
}
