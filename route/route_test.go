package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/omniscrape/models"
)

func TestRouteAllowList(t *testing.T) {
	tests := []struct {
		url  string
		want models.RouteDecision
	}{
		{"https://www.youtube.com/watch?v=abc", models.DirectMedia},
		{"https://youtu.be/abc", models.DirectMedia},
		{"https://m.youtube.com/watch?v=abc", models.DirectMedia},
		{"HTTPS://WWW.VIMEO.COM/123", models.DirectMedia},
		{"x.com/user/status/1", models.DirectMedia},
		{"https://clips.twitch.tv/abc", models.DirectMedia},
		{"https://example.com/article", models.GenericBrowser},
		{"https://box.com/file", models.GenericBrowser},
		{"https://notyoutube.com/watch", models.GenericBrowser},
		{"https://youtube.com.evil.org/", models.GenericBrowser},
		{"", models.GenericBrowser},
		{"http://[::1", models.GenericBrowser},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := Route(tt.url)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Route(tt.url))
		})
	}
}

func TestRouterCustomDomains(t *testing.T) {
	r := NewRouter([]string{"Media.Example.org"})
	assert.Equal(t, models.DirectMedia, r.Route("https://cdn.media.example.org/v/1"))
	assert.Equal(t, models.GenericBrowser, r.Route("https://www.youtube.com/watch?v=abc"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "example.com", Host("https://WWW.Example.com:8443/path"))
	assert.Equal(t, "example.com", Host("example.com/path"))
	assert.Equal(t, "", Host("   "))
}
