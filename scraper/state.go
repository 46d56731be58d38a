package scraper

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// loadState restores cookies saved by saveState. A missing file is not an
// error.
func loadState(b *rod.Browser, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cookies, err := decodeState(raw)
	if err != nil {
		return 0, err
	}
	if len(cookies) == 0 {
		return 0, nil
	}
	return len(cookies), b.SetCookies(proto.CookiesToParams(cookies))
}

// saveState writes the browser's cookie jar to path.
func saveState(b *rod.Browser, path string) error {
	if path == "" {
		return nil
	}
	cookies, err := b.GetCookies()
	if err != nil {
		return err
	}
	raw, err := encodeState(cookies)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o600)
}

// storageState is the on-disk cookie jar format.
type storageState struct {
	Cookies []*proto.NetworkCookie `json:"cookies"`
}

func encodeState(cookies []*proto.NetworkCookie) ([]byte, error) {
	return json.MarshalIndent(storageState{Cookies: cookies}, "", "  ")
}

// decodeState drops cookies that have already expired.
func decodeState(raw []byte) ([]*proto.NetworkCookie, error) {
	var st storageState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	now := float64(time.Now().Unix())
	live := st.Cookies[:0]
	for _, c := range st.Cookies {
		if c == nil {
			continue
		}
		if !c.Session && c.Expires > 0 && float64(c.Expires) < now {
			continue
		}
		live = append(live, c)
	}
	return live, nil
}

func toHTTPCookies(cookies []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}
