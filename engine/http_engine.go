package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/omniscrape/models"
	"github.com/use-agent/omniscrape/page"
	"golang.org/x/net/html"
)

// HTTPEngine loads pages over plain HTTP with a Chrome-like TLS fingerprint.
// It runs no JavaScript, so pages come back as static documents.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine. timeout bounds each Open.
func NewHTTPEngine(userAgent string, timeout time.Duration) *HTTPEngine {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return newHTTPEngine(&http.Client{Transport: transport}, userAgent, timeout)
}

func newHTTPEngine(client *http.Client, userAgent string, timeout time.Duration) *HTTPEngine {
	if client.CheckRedirect == nil {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		}
	}
	return &HTTPEngine{client: client, userAgent: userAgent, timeout: timeout}
}

func (e *HTTPEngine) Name() string { return "http" }

// FetchResult is a raw HTTP page load.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	Cookies    []*http.Cookie
}

func (e *HTTPEngine) Open(ctx context.Context, url string) (page.Page, func(), error) {
	res, err := e.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	p, err := page.NewStatic(res.FinalURL, res.HTML)
	if err != nil {
		return nil, nil, models.NewScrapeError(models.ErrCodeNavigation, "unparseable page", err)
	}
	slog.Info("static page loaded", "url", res.FinalURL, "status", res.StatusCode, "title", res.Title)
	return p.WithSession(e.userAgent, res.Cookies), func() {}, nil
}

// Fetch performs the GET and rejects error statuses and non-HTML bodies.
func (e *HTTPEngine) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid url", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, models.NewScrapeError(models.ErrCodeNavigationTimeout, "page load timed out", err)
		}
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "page request failed", err)
	}
	defer resp.Body.Close()

	// Read body with a 10 MB limit to prevent unbounded memory use.
	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "reading page body failed", err)
	}

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("non-html or error status %d (content-type: %s)", resp.StatusCode, ct),
			nil,
		)
	}

	bodyStr := string(body)
	return &FetchResult{
		HTML:       bodyStr,
		Title:      extractTitle(bodyStr),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Cookies:    resp.Cookies(),
	}, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
