package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/omniscrape/models"
)

// maxFormats caps how many formats are kept on MediaInfo.
const maxFormats = 5

// YTDLP resolves media by shelling out to the yt-dlp binary.
type YTDLP struct {
	binary  string
	extra   []string
	timeout time.Duration
}

// NewYTDLP returns a resolver running binary ("yt-dlp" when empty) with
// extra arguments appended to every invocation.
func NewYTDLP(binary string, extra ...string) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{binary: binary, extra: extra}
}

// WithTimeout bounds every yt-dlp invocation. 0 disables the bound.
func (y *YTDLP) WithTimeout(d time.Duration) *YTDLP {
	y.timeout = d
	return y
}

// ytdlpInfo is the subset of --dump-single-json output we read.
type ytdlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	WebpageURL string  `json:"webpage_url"`
	URL        string  `json:"url"`
	Thumbnail  string  `json:"thumbnail"`
	Duration   float64 `json:"duration"`
	Uploader   string  `json:"uploader"`
	ViewCount  int64   `json:"view_count"`
	Formats    []struct {
		FormatID   string `json:"format_id"`
		Ext        string `json:"ext"`
		Resolution string `json:"resolution"`
		FormatNote string `json:"format_note"`
	} `json:"formats"`
}

// Resolve fetches metadata without downloading.
func (y *YTDLP) Resolve(ctx context.Context, url string, auth Auth) (*models.MediaInfo, error) {
	stdout, err := y.run(ctx, url, auth,
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
	)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMediaResolution, "unreadable yt-dlp output", err)
	}

	m := &models.MediaInfo{
		Title:     info.Title,
		ID:        info.ID,
		URL:       info.WebpageURL,
		StreamURL: info.URL,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
		Uploader:  info.Uploader,
		ViewCount: info.ViewCount,
		Strategy:  models.StrategyBrowser,
	}
	if m.URL == "" {
		m.URL = url
	}
	for i, f := range info.Formats {
		if i == maxFormats {
			break
		}
		m.Formats = append(m.Formats, models.Format{
			ID:         f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Note:       f.FormatNote,
		})
	}
	return m, nil
}

// Download saves the best single-file rendition into dir.
func (y *YTDLP) Download(ctx context.Context, url string, auth Auth, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "cannot create media directory", err)
	}
	stdout, err := y.run(ctx, url, auth,
		"-f", "best",
		"--no-playlist",
		"--restrict-filenames",
		"--no-simulate",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		"--print", "after_move:filepath",
	)
	if err != nil {
		return "", err
	}
	path := lastLine(stdout)
	if path == "" {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "yt-dlp reported no output file", nil)
	}
	return path, nil
}

// run executes yt-dlp with the session identity and classifies failures.
// exec.CommandContext passes args directly, so no shell quoting is needed.
func (y *YTDLP) run(ctx context.Context, url string, auth Auth, args ...string) ([]byte, error) {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	cookieFile, cleanup, err := writeCookieFile(url, auth.Cookies)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMediaResolution, "cannot write cookie file", err)
	}
	defer cleanup()

	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	if auth.UserAgent != "" {
		args = append(args, "--user-agent", auth.UserAgent)
	}
	args = append(args, y.extra...)
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, y.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("media: running yt-dlp", "url", url, "cookies", len(auth.Cookies))
	runErr := cmd.Run()

	// stdout carries the media's own metadata, so only stderr is inspected.
	if isForbidden(stderr.String()) {
		return nil, models.NewScrapeError(
			models.ErrCodeMediaForbidden,
			"media host refused access (403)",
			fmt.Errorf("%s", firstLine(stderr.Bytes())),
		)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, models.NewScrapeError(models.ErrCodeMediaResolution, "yt-dlp interrupted", ctx.Err())
		}
		msg := firstLine(stderr.Bytes())
		if msg == "" {
			msg = runErr.Error()
		}
		return nil, models.NewScrapeError(models.ErrCodeMediaResolution, msg, runErr)
	}
	return stdout.Bytes(), nil
}

// isForbidden reports whether yt-dlp's stderr carries an HTTP 403 error line.
func isForbidden(stderr string) bool {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "HTTP Error 403") {
			return true
		}
		if strings.HasPrefix(line, "ERROR:") && (strings.Contains(line, "403") || strings.Contains(line, "Forbidden")) {
			return true
		}
	}
	return false
}

func firstLine(b []byte) string {
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
