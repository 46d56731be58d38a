// Package scraper owns the Rod browser: launching it with stealth flags,
// opening pages for a run and persisting the cookie jar between runs.
package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/omniscrape/config"
	"github.com/use-agent/omniscrape/models"
)

// Session is one browser process shared by sequential runs.
// It is safe for concurrent use.
type Session struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig

	closeOnce sync.Once
}

// NewSession launches the browser, connects to it and restores the saved
// cookie jar.
func NewSession(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.Proxy != "" {
		l = l.Proxy(browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", browserCfg.Headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	s := &Session{
		browser:    browser,
		launcher:   l,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
	}
	if n, err := loadState(browser, browserCfg.StorageState); err != nil {
		slog.Warn("storage state not restored", "path", browserCfg.StorageState, "error", err)
	} else if n > 0 {
		slog.Info("storage state restored", "path", browserCfg.StorageState, "cookies", n)
	}
	return s, nil
}

// Headless reports whether the browser window is hidden.
func (s *Session) Headless() bool { return s.browserCfg.Headless }

// Cookies returns every cookie in the browser's jar.
func (s *Session) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := s.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, err
	}
	return toHTTPCookies(cookies), nil
}

// Close saves the cookie jar and kills the browser. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := saveState(s.browser, s.browserCfg.StorageState); err != nil {
			slog.Warn("storage state not saved", "path", s.browserCfg.StorageState, "error", err)
		}
		slog.Info("browser shutting down")
		if err := s.browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		s.launcher.Cleanup()
		slog.Info("browser shutdown complete")
	})
}
