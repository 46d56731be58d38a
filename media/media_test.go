package media

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/omniscrape/models"
)

func TestWriteNetscapeCookies(t *testing.T) {
	var buf bytes.Buffer
	err := WriteNetscapeCookies(&buf, "https://www.example.com/watch", []*http.Cookie{
		{Name: "sid", Value: "abc", Domain: ".example.com", Path: "/", Secure: true, Expires: time.Unix(1700000000, 0)},
		{Name: "pref", Value: "dark"},
		{Name: "tok", Value: "x", Domain: "example.com", HttpOnly: true},
		{Name: ""},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, netscapeHeader, lines[0])
	assert.Equal(t, ".example.com\tTRUE\t/\tTRUE\t1700000000\tsid\tabc", lines[1])
	assert.Equal(t, "www.example.com\tFALSE\t/\tFALSE\t0\tpref\tdark", lines[2])
	assert.Equal(t, "#HttpOnly_example.com\tFALSE\t/\tFALSE\t0\ttok\tx", lines[3])
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, isForbidden("ERROR: unable to download video data: HTTP Error 403: Forbidden"))
	assert.True(t, isForbidden("[youtube] abc: Downloading webpage\nERROR: [youtube] abc: 403 Forbidden"))
	assert.False(t, isForbidden("ERROR: Unsupported URL"))
	assert.False(t, isForbidden("[info] Forbidden Planet (1956) trailer"))
}

// fakeYTDLP writes a shell script standing in for the yt-dlp binary.
func fakeYTDLP(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestYTDLPResolve(t *testing.T) {
	bin := fakeYTDLP(t, `cat <<'JSON'
{"id":"abc","title":"Demo","webpage_url":"https://www.youtube.com/watch?v=abc","url":"https://cdn.example/v.mp4","duration":12.5,
 "formats":[{"format_id":"1"},{"format_id":"2"},{"format_id":"3"},{"format_id":"4"},{"format_id":"5"},{"format_id":"6"}]}
JSON`)
	y := NewYTDLP(bin)

	info, err := y.Resolve(context.Background(), "https://youtu.be/abc", Auth{UserAgent: "UA"})
	require.NoError(t, err)
	assert.Equal(t, "Demo", info.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", info.URL)
	assert.Equal(t, "https://cdn.example/v.mp4", info.StreamURL)
	assert.Len(t, info.Formats, maxFormats)
}

func TestYTDLPResolveForbiddenInMetadata(t *testing.T) {
	bin := fakeYTDLP(t, `cat <<'JSON'
{"id":"abc","title":"Forbidden Planet (1956) trailer","description":"HTTP Error 403 is not an error here","tags":["Forbidden"]}
JSON`)
	info, err := NewYTDLP(bin).Resolve(context.Background(), "https://www.youtube.com/watch?v=abc", Auth{})
	require.NoError(t, err)
	assert.Equal(t, "Forbidden Planet (1956) trailer", info.Title)
}

func TestYTDLPForbidden(t *testing.T) {
	bin := fakeYTDLP(t, `echo "ERROR: HTTP Error 403: Forbidden" >&2; exit 1`)
	_, err := NewYTDLP(bin).Resolve(context.Background(), "https://x.com/a/status/1", Auth{})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeMediaForbidden, models.CodeOf(err))
}

func TestYTDLPFailure(t *testing.T) {
	bin := fakeYTDLP(t, `echo "ERROR: Unsupported URL" >&2; exit 1`)
	_, err := NewYTDLP(bin).Resolve(context.Background(), "https://example.com/", Auth{})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeMediaResolution, models.CodeOf(err))
	assert.Contains(t, err.Error(), "Unsupported URL")
}

func TestYTDLPDownloadPassesCookies(t *testing.T) {
	dir := t.TempDir()
	// Echo the path following --cookies, proving the cookie file was passed.
	bin := fakeYTDLP(t, `while [ $# -gt 0 ]; do
  if [ "$1" = "--cookies" ]; then head -1 "$2" >&2; fi
  shift
done
echo "`+filepath.Join(dir, "Demo.mp4")+`"`)

	path, err := NewYTDLP(bin).Download(context.Background(), "https://vimeo.com/1",
		Auth{Cookies: []*http.Cookie{{Name: "a", Value: "b", Domain: "vimeo.com"}}}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Demo.mp4"), path)
}

type stubResolver struct {
	info *models.MediaInfo
	err  error
	urls []string
}

func (s *stubResolver) Resolve(_ context.Context, url string, _ Auth) (*models.MediaInfo, error) {
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.info
	return &cp, nil
}

func (s *stubResolver) Download(_ context.Context, url string, _ Auth, dir string) (string, error) {
	return filepath.Join(dir, "x.mp4"), s.err
}

func TestDirectHandlerMarksStrategy(t *testing.T) {
	r := &stubResolver{info: &models.MediaInfo{Title: "t", Strategy: models.StrategyBrowser}}
	info, err := NewDirectHandler(r).Resolve(context.Background(), "https://youtu.be/x")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyDirect, info.Strategy)
	assert.Equal(t, []string{"https://youtu.be/x"}, r.urls)
}
