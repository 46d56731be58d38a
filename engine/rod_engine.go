package engine

import (
	"context"
	"sync"

	"github.com/use-agent/omniscrape/config"
	"github.com/use-agent/omniscrape/page"
	"github.com/use-agent/omniscrape/scraper"
)

// RodEngine opens pages in a Rod browser session, launched on first use.
type RodEngine struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig

	mu      sync.Mutex
	session *scraper.Session
}

func NewRodEngine(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *RodEngine {
	return &RodEngine{browserCfg: browserCfg, scraperCfg: scraperCfg}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Open(ctx context.Context, url string) (page.Page, func(), error) {
	s, err := e.start()
	if err != nil {
		return nil, nil, err
	}
	p, err := s.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// start launches the browser once. A failed launch is retried on the next
// call.
func (e *RodEngine) start() (*scraper.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return e.session, nil
	}
	s, err := scraper.NewSession(e.browserCfg, e.scraperCfg)
	if err != nil {
		return nil, err
	}
	e.session = s
	return s, nil
}

// Started reports whether the browser is running.
func (e *RodEngine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Close persists the session and kills the browser if it was started.
func (e *RodEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}
}
