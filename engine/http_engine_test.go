package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
)

func TestHTTPEngineOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			assert.Equal(t, "test-agent", r.UserAgent())
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42"})
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(articleHTML))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newHTTPEngine(&http.Client{}, "test-agent", 5*time.Second)
	assert.Equal(t, "http", e.Name())

	p, release, err := e.Open(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	defer release()

	assert.False(t, p.Interactive())
	n, err := p.Count(context.Background(), "article p")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ua, err := p.UserAgent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-agent", ua)

	cookies, err := p.Cookies(context.Background())
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)

	_, _, err = e.Open(context.Background(), srv.URL+"/json")
	assert.Equal(t, models.ErrCodeNavigation, models.CodeOf(err))

	_, _, err = e.Open(context.Background(), srv.URL+"/missing")
	assert.Equal(t, models.ErrCodeNavigation, models.CodeOf(err))
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Page title", extractTitle(articleHTML))
	assert.Equal(t, "", extractTitle("<html><body>no title</body></html>"))
	assert.Equal(t, "", extractTitle("<title></title>"))
}

func TestIsHTMLContentType(t *testing.T) {
	assert.True(t, isHTMLContentType("text/html; charset=utf-8"))
	assert.True(t, isHTMLContentType("application/xhtml+xml"))
	assert.False(t, isHTMLContentType("application/json"))
}
