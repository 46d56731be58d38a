package media

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// WriteNetscapeCookies writes cookies in the Netscape cookies.txt format read
// by yt-dlp's --cookies flag. Cookies without a domain take pageURL's host.
func WriteNetscapeCookies(w io.Writer, pageURL string, cookies []*http.Cookie) error {
	fallbackHost := ""
	if u, err := url.Parse(pageURL); err == nil {
		fallbackHost = u.Hostname()
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, netscapeHeader)
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		domain := c.Domain
		if domain == "" {
			domain = fallbackHost
		}
		if domain == "" {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		if c.HttpOnly {
			domain = "#HttpOnly_" + domain
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain,
			boolField(strings.HasPrefix(strings.TrimPrefix(domain, "#HttpOnly_"), ".")),
			path,
			boolField(c.Secure),
			expires,
			c.Name,
			c.Value,
		)
	}
	return bw.Flush()
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// writeCookieFile writes cookies to a temp file and returns its path and a
// cleanup func. It returns "" when there is nothing to write.
func writeCookieFile(pageURL string, cookies []*http.Cookie) (string, func(), error) {
	if len(cookies) == 0 {
		return "", func() {}, nil
	}
	f, err := os.CreateTemp("", "omniscrape-cookies-*.txt")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if err := WriteNetscapeCookies(f, pageURL, cookies); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return f.Name(), cleanup, nil
}
