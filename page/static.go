package page

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Static is a Page backed by a parsed HTML document. It never runs scripts,
// so scrolling is a no-op and WaitSelector answers immediately.
type Static struct {
	doc       *goquery.Document
	rawHTML   string
	base      *url.URL
	userAgent string
	cookies   []*http.Cookie

	mu        sync.Mutex
	selectors map[string]cascadia.Selector
}

// NewStatic parses rawHTML as the document found at pageURL.
func NewStatic(pageURL, rawHTML string) (*Static, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("page: parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("page: parse url: %w", err)
	}
	return &Static{
		doc:       doc,
		rawHTML:   rawHTML,
		base:      base,
		selectors: make(map[string]cascadia.Selector),
	}, nil
}

// WithSession records the user agent and cookies the document was fetched with.
func (s *Static) WithSession(userAgent string, cookies []*http.Cookie) *Static {
	s.userAgent = userAgent
	s.cookies = cookies
	return s
}

func (s *Static) URL() string { return s.base.String() }

func (s *Static) Title(context.Context) (string, error) {
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

func (s *Static) HTML(context.Context) (string, error) {
	return s.rawHTML, nil
}

func (s *Static) Count(_ context.Context, selector string) (int, error) {
	sel, err := s.find(selector)
	if err != nil {
		return 0, err
	}
	return sel.Length(), nil
}

func (s *Static) Nodes(_ context.Context, selector string) ([]Node, error) {
	sel, err := s.find(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		nodes = append(nodes, s.snapshot(el))
	})
	return nodes, nil
}

func (s *Static) ScrollHeight(context.Context) (int, error) { return 0, nil }

func (s *Static) ScrollToBottom(context.Context) error { return nil }

func (s *Static) WaitSelector(_ context.Context, selector string, _ time.Duration) error {
	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return ErrElementNotFound
	}
	return nil
}

func (s *Static) UserAgent(context.Context) (string, error) { return s.userAgent, nil }

func (s *Static) Cookies(context.Context) ([]*http.Cookie, error) { return s.cookies, nil }

func (s *Static) Interactive() bool { return false }

// find compiles selector once and matches it against the document.
func (s *Static) find(selector string) (*goquery.Selection, error) {
	s.mu.Lock()
	compiled, ok := s.selectors[selector]
	if !ok {
		var err error
		compiled, err = cascadia.Compile(selector)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("page: invalid selector %q: %w", selector, err)
		}
		s.selectors[selector] = compiled
	}
	s.mu.Unlock()
	return s.doc.FindMatcher(compiled), nil
}

func (s *Static) snapshot(el *goquery.Selection) Node {
	n := Node{
		Tag:   goquery.NodeName(el),
		Text:  el.Text(),
		Attrs: make(map[string]string),
	}
	n.HTML, _ = el.Html()
	n.OuterHTML, _ = goquery.OuterHtml(el)
	if len(el.Nodes) > 0 {
		for _, a := range el.Nodes[0].Attr {
			n.Attrs[a.Key] = a.Val
		}
	}
	if src := n.Attrs["src"]; src != "" {
		n.Src = s.resolve(src)
	}
	w, wErr := strconv.Atoi(strings.TrimSuffix(n.Attrs["width"], "px"))
	h, hErr := strconv.Atoi(strings.TrimSuffix(n.Attrs["height"], "px"))
	if wErr == nil && hErr == nil {
		n.Width, n.Height, n.Sized = w, h, true
	}
	return n
}

// resolve makes ref absolute against the page URL.
func (s *Static) resolve(ref string) string {
	u, err := s.base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return u.String()
}
