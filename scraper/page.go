package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// Page is a browser tab loaded for one run. It implements page.Page.
type Page struct {
	page     *rod.Page
	router   *rod.HijackRouter
	url      string
	headless bool
}

var _ page.Page = (*Page)(nil)

// Open creates a tab and loads targetURL in it.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Create tab
//  2. Stealth injection      – before navigation, so the first document is covered
//  3. Identity               – user agent and viewport
//  4. Hijack mount           – resource and ad blocking
//  5. Navigate               – bounded by the navigation timeout
//  6. Wait                   – load event, then DOM stable (best-effort)
//  7. Final URL              – after redirects
func (s *Session) Open(ctx context.Context, targetURL string) (*Page, error) {
	// ── 1. Create tab ─────────────────────────────────────────────────
	rp, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open a browser tab",
			err,
		)
	}
	// Detach from ctx so Close still works after the run deadline.
	rp = rp.Context(context.Background())

	// ── 2. Stealth injection ──────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := rp.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 3. Identity ───────────────────────────────────────────────────
	if s.browserCfg.UserAgent != "" {
		if err := rp.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.browserCfg.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}
	if err := rp.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.browserCfg.ViewportWidth,
		Height:            s.browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}

	// ── 4. Mount hijack router ────────────────────────────────────────
	p := &Page{
		page:     rp,
		router:   setupHijack(rp, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockAds),
		url:      targetURL,
		headless: s.browserCfg.Headless,
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer cancel()
	nav := rp.Context(navCtx)

	if err := nav.Navigate(targetURL); err != nil {
		p.Close()
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	// ── 6. Wait strategy ──────────────────────────────────────────────
	if err := nav.WaitLoad(); err != nil {
		slog.Debug("load event not observed, proceeding", "error", err)
	}
	if err := nav.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}

	// ── 7. Final URL ──────────────────────────────────────────────────
	if info, err := rp.Info(); err == nil && info.URL != "" {
		p.url = info.URL
	}
	return p, nil
}

// Close stops request interception and closes the tab.
func (p *Page) Close() {
	if p.router != nil {
		_ = p.router.Stop()
	}
	if err := p.page.Close(); err != nil {
		slog.Debug("closing tab failed", "error", err)
	}
}

func (p *Page) URL() string { return p.url }

func (p *Page) Interactive() bool { return !p.headless }

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.evalString(ctx, `() => document.title`)
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *Page) UserAgent(ctx context.Context) (string, error) {
	return p.evalString(ctx, `() => navigator.userAgent`)
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	res, err := p.page.Context(ctx).Eval(`(sel) => document.querySelectorAll(sel).length`, selector)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// snapshotJS serialises matching elements into page.Node's JSON shape.
// Images report their rendered size; other elements their bounding box.
const snapshotJS = `(sel) => Array.from(document.querySelectorAll(sel)).map(el => {
	const attrs = {};
	for (const a of el.attributes) attrs[a.name] = a.value;
	const rect = el.getBoundingClientRect();
	let width = Math.round(rect.width), height = Math.round(rect.height);
	if (el.tagName === 'IMG') {
		width = el.width || el.naturalWidth || width;
		height = el.height || el.naturalHeight || height;
	}
	return {
		tag: el.tagName.toLowerCase(),
		text: el.innerText !== undefined ? el.innerText : (el.textContent || ''),
		html: el.innerHTML,
		outer: el.outerHTML,
		attrs: attrs,
		src: el.currentSrc || el.src || '',
		width: width,
		height: height,
		sized: true,
	};
})`

func (p *Page) Nodes(ctx context.Context, selector string) ([]page.Node, error) {
	res, err := p.page.Context(ctx).Eval(snapshotJS, selector)
	if err != nil {
		return nil, err
	}
	var nodes []page.Node
	if err := res.Value.Unmarshal(&nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *Page) ScrollHeight(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(`() => (document.body || document.documentElement).scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (p *Page) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, (document.body || document.documentElement).scrollHeight)`)
	return err
}

// WaitSelector polls for selector until timeout. Running out of time is
// reported as page.ErrElementNotFound; cancellation of ctx is returned as is.
func (p *Page) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := p.page.Context(waitCtx).Element(selector)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return page.ErrElementNotFound
	}
	return err
}

func (p *Page) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	cookies, err := p.page.Context(ctx).Cookies([]string{p.url})
	if err != nil {
		return nil, err
	}
	return toHTTPCookies(cookies), nil
}

func (p *Page) evalString(ctx context.Context, js string) (string, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell a slow site from a broken one.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, "navigation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
