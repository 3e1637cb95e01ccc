// Package context implements the context-detection supplement named in
// SPEC_FULL.md: version-control and project-type facts about a working
// directory, cached per the 5-second TTL in §5.
package context

import (
	"sync"
	"time"

	"github.com/runger/nicehist/internal/rpc"
)

// DefaultTTL is the cache lifetime for a directory's collected Info, per
// the concurrency and resource model.
const DefaultTTL = 5 * time.Second

// Info is everything the ingestion pipeline and the "context" RPC method
// need about a directory.
type Info struct {
	VCS     string
	Branch  string
	VCSRoot string
	Project string
}

func (i Info) toRPC() rpc.ContextInfo {
	return rpc.ContextInfo{VCS: i.VCS, Branch: i.Branch, VCSRoot: i.VCSRoot, Project: i.Project}
}

type cacheEntry struct {
	info      Info
	expiresAt time.Time
}

// Collector caches Info per directory for DefaultTTL, so a burst of
// commands issued from the same shell in the same directory doesn't
// re-walk the filesystem or re-exec git for every single one.
type Collector struct {
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewCollector constructs a Collector with the given TTL; a zero ttl
// selects DefaultTTL.
func NewCollector(ttl time.Duration) *Collector {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Collector{
		cache:   make(map[string]cacheEntry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Collect returns the cached Info for dir if still fresh, otherwise
// computes and caches a new one.
func (c *Collector) Collect(dir string) Info {
	now := c.nowFunc()

	c.mu.RLock()
	entry, ok := c.cache[dir]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.info
	}

	vcs := detectVCS(dir)
	info := Info{
		VCS:     vcs.VCS,
		Branch:  vcs.Branch,
		VCSRoot: vcs.Root,
		Project: detectProjectType(dir),
	}

	c.mu.Lock()
	c.cache[dir] = cacheEntry{info: info, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return info
}

// CollectRPC is a convenience wrapper returning the rpc wire type directly,
// for the "context" method handler.
func (c *Collector) CollectRPC(dir string) rpc.ContextInfo {
	return c.Collect(dir).toRPC()
}

// Invalidate drops dir's cache entry, forcing the next Collect to
// recompute.
func (c *Collector) Invalidate(dir string) {
	c.mu.Lock()
	delete(c.cache, dir)
	c.mu.Unlock()
}

// Cleanup removes expired entries; intended to be called periodically by
// the daemon so the cache doesn't grow unbounded across a long session
// with commands issued from many distinct directories.
func (c *Collector) Cleanup() {
	now := c.nowFunc()
	c.mu.Lock()
	defer c.mu.Unlock()
	for dir, entry := range c.cache {
		if now.After(entry.expiresAt) {
			delete(c.cache, dir)
		}
	}
}

// Size reports the number of cached directories, for diagnostics.
func (c *Collector) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
