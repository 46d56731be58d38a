// Package download fetches remote files into the downloads tree.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/omniscrape/models"
	"golang.org/x/sync/errgroup"
)

// Options configures a Downloader.
type Options struct {
	// BaseDir is the downloads root; tasks write to BaseDir/Folder.
	BaseDir string

	UserAgent string

	// Timeout bounds each transfer. 0 means no per-item timeout.
	Timeout time.Duration

	// MaxConcurrent caps parallel transfers in DownloadMany. 0 is unlimited.
	MaxConcurrent int

	// MaxConnsPerHost caps connections per host on the shared transport.
	MaxConnsPerHost int
}

// Downloader streams files to disk. It is safe for concurrent use.
type Downloader struct {
	opts   Options
	client *http.Client
}

// New returns a Downloader. client may be nil.
func New(opts Options, client *http.Client) *Downloader {
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.MaxConnsPerHost > 0 {
			transport.MaxConnsPerHost = opts.MaxConnsPerHost
		}
		client = &http.Client{Transport: transport}
	}
	return &Downloader{opts: opts, client: client}
}

// DownloadOne fetches task.SourceURL into its folder and returns the final
// path. The body is written to a .part file that is renamed on success.
func (d *Downloader) DownloadOne(ctx context.Context, task models.DownloadTask) (string, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	dir := filepath.Join(d.opts.BaseDir, task.Folder)
	name := task.Filename
	if name == "" {
		name = task.SourceURL
	}
	dest := filepath.Join(dir, SanitizeFilename(name))
	if !within(d.opts.BaseDir, dest) {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "destination escapes download directory", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "cannot create download directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.SourceURL, nil)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "invalid download url", err)
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", models.NewScrapeError(
			models.ErrCodeDownloadFailed,
			fmt.Sprintf("unexpected status %d", resp.StatusCode),
			nil,
		)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "cannot create file", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(part)
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "transfer interrupted", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "cannot flush file", err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return "", models.NewScrapeError(models.ErrCodeDownloadFailed, "cannot finalize file", err)
	}
	return dest, nil
}

// DownloadMany fetches every URL into folder concurrently. It returns one
// outcome per input, in input order; a failed item never stops the others.
func (d *Downloader) DownloadMany(ctx context.Context, urls []string, folder string) []models.DownloadOutcome {
	outcomes := make([]models.DownloadOutcome, len(urls))
	names := uniqueNames(urls)

	var g errgroup.Group
	if d.opts.MaxConcurrent > 0 {
		g.SetLimit(d.opts.MaxConcurrent)
	}
	for i, u := range urls {
		g.Go(func() error {
			path, err := d.DownloadOne(ctx, models.DownloadTask{SourceURL: u, Folder: folder, Filename: names[i]})
			if err != nil {
				slog.Warn("download failed", "url", u, "error", err)
			}
			outcomes[i] = models.NewDownloadOutcome(u, path, err)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	slog.Info("downloads finished", "folder", folder, "total", len(urls), "failed", failed)
	return outcomes
}

// uniqueNames assigns every URL a distinct file name before any transfer
// starts, suffixing repeats with _N. Names compare case-insensitively.
func uniqueNames(urls []string) []string {
	names := make([]string, len(urls))
	taken := make(map[string]bool, len(urls))
	for i, u := range urls {
		name := SanitizeFilename(u)
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		for n := 1; taken[strings.ToLower(name)]; n++ {
			name = stem + "_" + strconv.Itoa(n) + ext
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// within reports whether path lies inside base.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
