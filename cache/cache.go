// Package cache keeps recent run reports for the REST API.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/use-agent/omniscrape/models"
)

// entry holds a cached report with its creation timestamp.
type entry struct {
	report    *models.RunReport
	createdAt time.Time
}

// Cache is an in-memory cache of successful run reports. It is safe for
// concurrent use.
type Cache struct {
	store *gocache.Cache
}

// New creates a Cache whose entries expire after ttl. Expired entries are
// purged every ttl/2 (at least once a minute).
func New(ttl time.Duration) *Cache {
	cleanup := ttl / 2
	if cleanup <= 0 || cleanup > time.Minute {
		cleanup = time.Minute
	}
	return &Cache{store: gocache.New(ttl, cleanup)}
}

// Key generates a cache key from the URL, the page source mode and the
// download flag. A nil downloadMedia means the server default and keys
// apart from both explicit values.
func Key(url string, static bool, downloadMedia *bool) string {
	download := "default"
	if downloadMedia != nil {
		download = strconv.FormatBool(*downloadMedia)
	}
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(static)))
	h.Write([]byte("|"))
	h.Write([]byte(download))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached report younger than maxAge. A maxAge <= 0 never hits.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.RunReport, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}
	return e.report, true
}

// Set stores report under key with the default expiration.
func (c *Cache) Set(key string, report *models.RunReport) {
	c.store.SetDefault(key, entry{report: report, createdAt: time.Now()})
}

// Len returns the number of unexpired entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
