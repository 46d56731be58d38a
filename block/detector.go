// Package block detects CAPTCHA and challenge pages and pauses for an
// operator when the browser is visible.
package block

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
)

// DefaultSelectors are element signatures of common challenge widgets,
// checked in order.
var DefaultSelectors = []string{
	"iframe[src*='google.com/recaptcha']",
	"iframe[src*='hcaptcha.com']",
	"iframe[src*='cloudflare']",
	"div.g-recaptcha",
	"#challenge-form",
}

// DefaultPhrases are matched case-insensitively against the rendered HTML
// when no selector hits.
var DefaultPhrases = []string{
	"verify you are human",
	"complete the security check",
}

// Detector runs the two-tier signature check and the mode-dependent recovery.
type Detector struct {
	selectors []string
	phrases   []string
	confirmer Confirmer
}

// NewDetector returns a Detector with the default signatures. confirmer is
// consulted only for interactive pages; nil selects a ConsoleConfirmer on stdin.
func NewDetector(confirmer Confirmer) *Detector {
	if confirmer == nil {
		confirmer = NewConsoleConfirmer(nil, nil)
	}
	return &Detector{
		selectors: DefaultSelectors,
		phrases:   DefaultPhrases,
		confirmer: confirmer,
	}
}

// Detect reports the first matching signature. Selector errors are logged
// and treated as no match.
func (d *Detector) Detect(ctx context.Context, p page.Page) (models.BlockSignal, error) {
	for _, sel := range d.selectors {
		n, err := p.Count(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return models.BlockSignal{}, ctx.Err()
			}
			slog.Debug("block: selector check failed", "selector", sel, "error", err)
			continue
		}
		if n > 0 {
			return models.BlockSignal{Blocked: true, Signature: sel}, nil
		}
	}

	html, err := p.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.BlockSignal{}, ctx.Err()
		}
		slog.Debug("block: reading html failed", "error", err)
		return models.BlockSignal{}, nil
	}
	lower := strings.ToLower(html)
	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			return models.BlockSignal{Blocked: true, Signature: phrase}, nil
		}
	}
	return models.BlockSignal{}, nil
}

// DetectAndRecover detects a block and, if found, recovers according to the
// page's mode:
//
//   - headless: returns a BLOCK_DETECTED error; the caller decides whether
//     to continue with a degraded page.
//   - headed: waits for the operator to solve the challenge. Only ctx
//     cancellation ends the wait early.
func (d *Detector) DetectAndRecover(ctx context.Context, p page.Page) (models.BlockSignal, error) {
	signal, err := d.Detect(ctx, p)
	if err != nil || !signal.Blocked {
		return signal, err
	}

	slog.Warn("block: challenge detected", "url", p.URL(), "signature", signal.Signature)

	if !p.Interactive() {
		return signal, models.NewScrapeError(
			models.ErrCodeBlockDetected,
			fmt.Sprintf("challenge detected (%s); rerun with a visible browser to solve it", signal.Signature),
			nil,
		)
	}

	prompt := fmt.Sprintf("A challenge was detected on %s. Solve it in the browser window, then press Enter to continue.", p.URL())
	if err := d.confirmer.Confirm(ctx, prompt); err != nil {
		return signal, err
	}
	slog.Info("block: operator confirmed, resuming", "url", p.URL())
	return signal, nil
}
