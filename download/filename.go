package download

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// SanitizeFilename derives a safe local file name from a URL or raw name:
// the last path segment without query or fragment, restricted to letters,
// digits and "._- ", with leading dots and spaces removed.
func SanitizeFilename(raw string) string {
	name := raw
	if u, err := url.Parse(raw); err == nil {
		name = u.Path
	} else if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	clean := strings.TrimRight(strings.TrimLeft(b.String(), ". "), " ")
	if clean == "" || clean == "." || clean == ".." {
		return fallbackName()
	}
	return clean
}

func fallbackName() string {
	return "download_" + uuid.NewString()[:8]
}
