package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/omniscrape/block"
	"github.com/use-agent/omniscrape/classify"
	"github.com/use-agent/omniscrape/cleaner"
	"github.com/use-agent/omniscrape/config"
	"github.com/use-agent/omniscrape/download"
	"github.com/use-agent/omniscrape/engine"
	"github.com/use-agent/omniscrape/export"
	"github.com/use-agent/omniscrape/extract"
	"github.com/use-agent/omniscrape/media"
	"github.com/use-agent/omniscrape/route"
	"github.com/use-agent/omniscrape/sites"
	"github.com/use-agent/omniscrape/webhook"
)

// app owns the long-lived components built from the config.
type app struct {
	dispatcher   *engine.Dispatcher
	rod          *engine.RodEngine
	notifier     *webhook.Notifier
	flushTimeout time.Duration
}

func newApp(cfg *config.Config) (*app, error) {
	schemas := make([]sites.Schema, len(cfg.Sites))
	for i, sc := range cfg.Sites {
		if sc.Wait == 0 {
			sc.Wait = cfg.Scraper.SelectorTimeout
		}
		schemas[i] = sc
	}
	registry, err := sites.DefaultRegistry(schemas...)
	if err != nil {
		return nil, fmt.Errorf("site scrapers: %w", err)
	}

	ytdlp := media.NewYTDLP(cfg.Media.YTDLPBinary, cfg.Media.ExtraArgs...).WithTimeout(cfg.Media.Timeout)

	rod := engine.NewRodEngine(cfg.Browser, cfg.Scraper)
	httpEngine := engine.NewHTTPEngine(cfg.Browser.UserAgent, cfg.Engine.HTTPTimeout)

	var browser engine.Engine = rod
	if cfg.Engine.Static {
		browser = httpEngine
	}

	selector := extract.NewSelector(
		registry,
		extract.NewMediaExtractor(ytdlp),
		extract.NewImageExtractor(cfg.Scraper.ImageSettle, cfg.Scraper.MinImageSize),
		extract.NewTextExtractor(cleaner.New()),
	)

	downloader := download.New(download.Options{
		BaseDir:         cfg.Download.Dir,
		UserAgent:       cfg.Download.UserAgent,
		Timeout:         cfg.Download.Timeout,
		MaxConcurrent:   cfg.Download.MaxConcurrent,
		MaxConnsPerHost: cfg.Download.MaxConnsPerHost,
	}, nil)

	deps := engine.Deps{
		Router:         route.NewRouter(cfg.Media.DirectDomains),
		Direct:         media.NewDirectHandler(ytdlp),
		Browser:        browser,
		Static:         httpEngine,
		StaticFallback: cfg.Engine.StaticFallback,
		Detector:       block.NewDetector(block.NewConsoleConfirmer(nil, nil)),
		Classifier:     classify.Classifier{},
		Selector:       selector,
		Downloader:     downloader,
		Exporter:       export.New(cfg.Download.Dir),
		Memory:         engine.NewDomainMemory(cfg.Engine.ForbiddenTTL),
		DownloadMedia:  cfg.Media.Download,
		RunTimeout:     cfg.Scraper.RunTimeout,
	}
	var notifier *webhook.Notifier
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)
		deps.Notifier = notifier
	}
	d := engine.NewDispatcher(deps)

	slog.Debug("components ready",
		"site_scrapers", registry.Len(),
		"direct_domains", len(cfg.Media.DirectDomains),
		"static", cfg.Engine.Static,
		"downloads", cfg.Download.Dir,
	)
	return &app{dispatcher: d, rod: rod, notifier: notifier, flushTimeout: cfg.Webhook.FlushTimeout}, nil
}

// browserStatus reports whether the browser has been launched.
func (a *app) browserStatus() string {
	if a.rod.Started() {
		return "running"
	}
	return "idle"
}

// Close waits for pending webhook deliveries, then saves the browser
// session and kills the browser.
func (a *app) Close() {
	if a.notifier != nil && !a.notifier.Flush(a.flushTimeout) {
		slog.Warn("webhook deliveries still pending at exit were dropped", "timeout", a.flushTimeout)
	}
	a.rod.Close()
}
