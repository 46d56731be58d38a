// Package page defines the DOM capability the extraction pipeline needs from
// a loaded page, independent of whether a live browser or a static HTML
// document backs it.
package page

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrElementNotFound is returned by WaitSelector when no element matched
// before the timeout.
var ErrElementNotFound = errors.New("page: element not found")

// Page is a loaded page owned by a single run.
type Page interface {
	// URL returns the page's final URL after redirects.
	URL() string

	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)

	// Nodes returns a snapshot of every element matching selector, in
	// document order.
	Nodes(ctx context.Context, selector string) ([]Node, error)

	ScrollHeight(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error

	// WaitSelector blocks until selector matches or timeout elapses.
	WaitSelector(ctx context.Context, selector string, timeout time.Duration) error

	UserAgent(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)

	// Interactive reports whether an operator can act on the page, which is
	// only true for a headed browser.
	Interactive() bool
}

// Node is a point-in-time snapshot of one element.
type Node struct {
	Tag       string            `json:"tag"`
	Text      string            `json:"text"`
	HTML      string            `json:"html"`
	OuterHTML string            `json:"outer"`
	Attrs     map[string]string `json:"attrs"`

	// Src is the element's resolved source URL (currentSrc for images).
	Src string `json:"src"`

	// Width and Height are the rendered footprint in CSS pixels. Sized is
	// false when the footprint is unknown, e.g. a static document without
	// width/height attributes.
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Sized  bool `json:"sized"`
}

// Attr returns the named attribute or "".
func (n Node) Attr(name string) string {
	return n.Attrs[name]
}
