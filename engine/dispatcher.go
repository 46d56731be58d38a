package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/omniscrape/block"
	"github.com/use-agent/omniscrape/classify"
	"github.com/use-agent/omniscrape/download"
	"github.com/use-agent/omniscrape/export"
	"github.com/use-agent/omniscrape/extract"
	"github.com/use-agent/omniscrape/media"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/route"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of a Dispatcher. Browser and Exporter are
// required; the rest may be nil where noted.
type Deps struct {
	Router route.Router
	Direct *media.DirectHandler

	// Browser is the primary page source. Static serves static runs and,
	// when StaticFallback is set, runs whose browser failed to launch.
	Browser        Engine
	Static         Engine
	StaticFallback bool

	Detector   *block.Detector
	Classifier classify.Classifier
	Selector   *extract.Selector

	Downloader *download.Downloader
	Exporter   *export.Exporter

	// Memory may be nil, which disables forbidden-host memory.
	Memory *DomainMemory

	// DownloadMedia enables media downloads by default.
	DownloadMedia bool

	// RunTimeout bounds a whole run. 0 disables it.
	RunTimeout time.Duration

	// Notifier, when set, receives every finished report.
	Notifier Notifier
}

// Notifier is told about finished runs. *webhook.Notifier implements it.
type Notifier interface {
	Notify(report *models.RunReport)
}

// RunOptions override per-run behavior.
type RunOptions struct {
	// Static reads the page over plain HTTP.
	Static bool

	// DownloadMedia overrides Deps.DownloadMedia when non-nil.
	DownloadMedia *bool
}

// Dispatcher runs extractions end to end.
type Dispatcher struct {
	deps     Deps
	inFlight atomic.Int64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Detector == nil {
		deps.Detector = block.NewDetector(nil)
	}
	return &Dispatcher{deps: deps}
}

// InFlight returns the number of runs in progress.
func (d *Dispatcher) InFlight() int {
	return int(d.inFlight.Load())
}

// Run extracts rawURL. The returned report is never nil; it is exported to
// the summary file even when the run fails, in which case its result is the
// error variant and the error is returned as well.
func (d *Dispatcher) Run(ctx context.Context, rawURL string, opts RunOptions) (report *models.RunReport, err error) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	report = &models.RunReport{
		ID:        uuid.NewString(),
		URL:       rawURL,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during run", "url", rawURL, "panic", r, "stack", string(debug.Stack()))
			err = models.NewScrapeError(models.ErrCodeInternal, fmt.Sprintf("panic: %v", r), nil)
		}
		if err != nil {
			report.Result = models.NewErrorResult(err)
		}
		d.finish(report)
	}()

	parent := ctx
	ctx, cancel := d.runContext(parent)
	defer cancel()

	if err := validateURL(rawURL); err != nil {
		return report, err
	}

	downloadMedia := d.deps.DownloadMedia
	if opts.DownloadMedia != nil {
		downloadMedia = *opts.DownloadMedia
	}

	report.Route = d.deps.Router.Route(rawURL)
	slog.Info("route decided", "url", rawURL, "route", report.Route)

	if report.Route == models.DirectMedia && d.deps.Direct != nil {
		if d.deps.Memory.Forbidden(rawURL) {
			report.Warn("host previously refused direct media resolution; using browser")
		} else {
			done, err := d.runDirect(ctx, report, rawURL, downloadMedia)
			if done {
				return report, err
			}
		}
	}

	return report, d.runBrowser(ctx, parent, report, rawURL, opts.Static, downloadMedia)
}

// runContext applies RunTimeout to parent.
func (d *Dispatcher) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if d.deps.RunTimeout > 0 {
		return context.WithTimeout(parent, d.deps.RunTimeout)
	}
	return context.WithCancel(parent)
}

// runDirect is the browserless fast path. It reports done=false when the
// run should fall back to the browser path.
func (d *Dispatcher) runDirect(ctx context.Context, report *models.RunReport, rawURL string, downloadMedia bool) (bool, error) {
	report.Source = "direct"
	info, err := d.deps.Direct.Resolve(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return true, err
		}
		if models.CodeOf(err) == models.ErrCodeMediaForbidden && d.deps.Memory != nil {
			d.deps.Memory.MarkForbidden(rawURL)
		}
		slog.Warn("direct media failed, falling back to browser", "url", rawURL, "error", err)
		report.Warn("direct media resolution failed: " + err.Error())
		return false, nil
	}

	report.Extractor = "direct"
	report.Result = models.NewMediaResult(info)

	if downloadMedia {
		dir := filepath.Join(d.deps.Exporter.BaseDir(), models.FolderVideo)
		path, err := d.deps.Direct.Download(ctx, rawURL, dir)
		report.Downloads = append(report.Downloads, models.NewDownloadOutcome(rawURL, path, err))
		if err != nil {
			slog.Warn("media download failed", "url", rawURL, "error", err)
		} else {
			info.FilePath = path
		}
	}
	return true, nil
}

// runBrowser loads and extracts the page under ctx. Block recovery runs
// under parent instead: a headed operator wait is not bounded by RunTimeout,
// and the run budget restarts once the operator confirms.
func (d *Dispatcher) runBrowser(ctx, parent context.Context, report *models.RunReport, rawURL string, static, downloadMedia bool) error {
	p, release, err := d.open(ctx, report, rawURL, static)
	if err != nil {
		return err
	}
	defer release()

	signal, err := d.deps.Detector.DetectAndRecover(parent, p)
	if signal.Blocked {
		report.Block = &signal
	}
	switch {
	case err != nil:
		if parent.Err() != nil || models.CodeOf(err) != models.ErrCodeBlockDetected {
			return err
		}
		// Headless: continue with whatever the challenge page exposes.
		report.Warn(err.Error())
	case signal.Blocked:
		var cancel context.CancelFunc
		ctx, cancel = d.runContext(parent)
		defer cancel()
	}

	analysis := d.deps.Classifier.Classify(ctx, p)
	report.Analysis = &analysis

	choice := d.deps.Selector.Select(p.URL(), analysis)
	report.Extractor = choice.Extractor.Name()
	slog.Info("extractor selected", "url", p.URL(), "content_type", analysis.ContentType, "extractor", report.Extractor)

	result, err := choice.Extractor.Extract(ctx, p)
	if err != nil {
		return err
	}
	report.Result = result

	// Media downloads overlap the exports and are awaited before the run
	// completes.
	var g errgroup.Group
	if result.Kind == models.KindMedia && result.Media != nil && downloadMedia {
		g.Go(func() error {
			d.downloadMedia(ctx, report, choice.Extractor, p, result.Media)
			return nil
		})
	}

	switch {
	case result.Records != nil:
		d.export(report, result.Records, export.RecordsJSON)
		if path, err := d.deps.Exporter.ToCSV(result.Records.Columns, result.Records.Rows, export.RecordsCSV); err != nil {
			report.Warn(err.Error())
		} else {
			report.Artifacts = append(report.Artifacts, path)
		}
	case result.Kind == models.KindText && result.Text != nil:
		d.export(report, result.Text, export.ArticlePath)
	case result.Kind == models.KindImages && downloadMedia && d.deps.Downloader != nil:
		urls := make([]string, len(result.Images))
		for i, img := range result.Images {
			urls[i] = img.URL
		}
		outcomes := d.deps.Downloader.DownloadMany(ctx, urls, models.FolderImages)
		report.Downloads = append(report.Downloads, outcomes...)
	}

	_ = g.Wait()
	return nil
}

// open loads the page from the requested source, falling back to the static
// source when the browser cannot start.
func (d *Dispatcher) open(ctx context.Context, report *models.RunReport, rawURL string, static bool) (page.Page, func(), error) {
	src := d.deps.Browser
	if static && d.deps.Static != nil {
		src = d.deps.Static
	}

	report.Source = src.Name()
	p, release, err := src.Open(ctx, rawURL)
	if err == nil {
		return p, release, nil
	}
	if models.CodeOf(err) != models.ErrCodeBrowserCrash || !d.deps.StaticFallback || d.deps.Static == nil || src == d.deps.Static {
		return nil, nil, err
	}

	slog.Warn("browser unavailable, using static page source", "url", rawURL, "error", err)
	report.Warn("browser unavailable: " + err.Error())
	report.Source = d.deps.Static.Name()
	return d.deps.Static.Open(ctx, rawURL)
}

// downloadMedia fetches browser-path media. Resolver-backed results reuse
// the page's session; raw <video> sources go through the downloader.
func (d *Dispatcher) downloadMedia(ctx context.Context, report *models.RunReport, ex extract.Extractor, p page.Page, info *models.MediaInfo) {
	var (
		path string
		err  error
		src  = info.URL
	)
	switch {
	case info.Strategy == models.StrategyRaw && d.deps.Downloader != nil:
		src = info.StreamURL
		path, err = d.deps.Downloader.DownloadOne(ctx, models.DownloadTask{SourceURL: src, Folder: models.FolderVideo})
	default:
		md, ok := ex.(extract.MediaDownloader)
		if !ok {
			return
		}
		dir := filepath.Join(d.deps.Exporter.BaseDir(), models.FolderVideo)
		path, err = md.Download(ctx, p, dir)
	}

	// Only this goroutine touches report.Downloads and info until Wait.
	report.Downloads = append(report.Downloads, models.NewDownloadOutcome(src, path, err))
	if err != nil {
		slog.Warn("media download failed", "url", src, "error", err)
		return
	}
	info.FilePath = path
}

func (d *Dispatcher) export(report *models.RunReport, v any, rel string) {
	path, err := d.deps.Exporter.ToJSON(v, rel)
	if err != nil {
		slog.Warn("export failed", "path", rel, "error", err)
		report.Warn(err.Error())
		return
	}
	report.Artifacts = append(report.Artifacts, path)
}

// finish stamps the duration, writes the summary and logs the outcome.
func (d *Dispatcher) finish(report *models.RunReport) {
	report.Duration = time.Since(report.StartedAt).Milliseconds()

	if path, err := d.deps.Exporter.ToJSON(report, export.SummaryPath); err != nil {
		slog.Error("writing run summary failed", "error", err)
	} else {
		report.Artifacts = append(report.Artifacts, path)
	}

	if d.deps.Notifier != nil {
		d.deps.Notifier.Notify(report)
	}

	failed := 0
	for _, o := range report.Downloads {
		if o.Err != nil {
			failed++
		}
	}
	attrs := []any{
		"id", report.ID,
		"url", report.URL,
		"route", report.Route,
		"source", report.Source,
		"extractor", report.Extractor,
		"downloads", len(report.Downloads),
		"download_errors", failed,
		"warnings", len(report.Warnings),
		"duration_ms", report.Duration,
	}
	if report.Result.IsError() {
		code := ""
		if report.Result != nil && report.Result.Error != nil {
			code = report.Result.Error.Code
		}
		slog.Error("run failed", append(attrs, "code", code)...)
		return
	}
	slog.Info("run complete", attrs...)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "unparseable url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "url must be http or https", nil)
	}
	if u.Host == "" {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "url has no host", nil)
	}
	return nil
}

// IsRunFailure reports whether a run ended in the error variant.
func IsRunFailure(report *models.RunReport, err error) bool {
	return err != nil || report == nil || report.Result.IsError()
}
