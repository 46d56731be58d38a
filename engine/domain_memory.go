package engine

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/use-agent/omniscrape/route"
)

// DomainMemory remembers hosts whose media fast path was refused (HTTP 403)
// so later runs go straight to the browser. Entries expire after the TTL.
type DomainMemory struct {
	store *cache.Cache
}

// NewDomainMemory creates a DomainMemory pruning expired entries hourly.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{store: cache.New(ttl, time.Hour)}
}

// MarkForbidden records that rawURL's host refused the fast path.
func (dm *DomainMemory) MarkForbidden(rawURL string) {
	if host := route.Host(rawURL); host != "" {
		dm.store.SetDefault(host, struct{}{})
	}
}

// Forbidden reports whether rawURL's host is remembered as refusing.
func (dm *DomainMemory) Forbidden(rawURL string) bool {
	if dm == nil {
		return false
	}
	_, found := dm.store.Get(route.Host(rawURL))
	return found
}

// Forget removes the memory for rawURL's host.
func (dm *DomainMemory) Forget(rawURL string) {
	dm.store.Delete(route.Host(rawURL))
}
