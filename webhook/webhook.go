// Package webhook posts run reports to an operator-configured endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/omniscrape/models"
)

// Event types.
const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the body when a secret is set.
const SignatureHeader = "X-Omniscrape-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string            `json:"type"`
	RunID     string            `json:"run_id"`
	Timestamp int64             `json:"timestamp"`
	Report    *models.RunReport `json:"report"`
}

// NewEvent wraps report in an event typed by its outcome.
func NewEvent(report *models.RunReport) *Event {
	typ := EventRunCompleted
	if report.Result.IsError() {
		typ = EventRunFailed
	}
	return &Event{Type: typ, RunID: report.ID, Timestamp: time.Now().Unix(), Report: report}
}

// Notifier delivers run events with retries. The zero delays slice means a
// single attempt.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration

	// base outlives individual runs; Flush cancels it on timeout.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotifier returns a Notifier posting to url. Retry intervals: 1s, 5s, 30s.
func NewNotifier(url, secret string) *Notifier {
	base, cancel := context.WithCancel(context.Background())
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
		base:   base,
		cancel: cancel,
	}
}

// Notify delivers the report's event in the background. Flush waits for it.
func (n *Notifier) Notify(report *models.RunReport) {
	event := NewEvent(report)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.deliverWithRetry(n.base, event); err != nil {
			slog.Error("webhook delivery exhausted all retries", "url", n.url, "event", event.Type, "run_id", event.RunID, "error", err)
		}
	}()
}

// Flush waits up to timeout for pending deliveries. On timeout the remaining
// deliveries are abandoned and Flush returns false.
func (n *Notifier) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		n.cancel()
		<-done
		return false
	}
}

func (n *Notifier) deliverWithRetry(ctx context.Context, event *Event) error {
	delays := n.delays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}
	var err error
	for attempt, delay := range delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = n.Deliver(ctx, event); err == nil {
			slog.Info("webhook delivered", "url", n.url, "event", event.Type, "run_id", event.RunID, "attempt", attempt+1)
			return nil
		}
		slog.Warn("webhook delivery failed", "url", n.url, "event", event.Type, "run_id", event.RunID, "attempt", attempt+1, "error", err)
	}
	return err
}

// Deliver sends one event synchronously.
// The request body is signed with HMAC-SHA256 if a secret is configured.
// Header: X-Omniscrape-Signature: sha256=<hex>
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Omniscrape-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
