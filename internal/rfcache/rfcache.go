// Package rfcache is the rendered-file cache: a coalescing
// get-or-compute LRU keyed by (absolute path, protocol) so that concurrent
// requests for the same static file share one filesystem read and render
// instead of stampeding the disk and the template engine.
package rfcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"rubyshd/internal/model"
)

// Key identifies one cache entry: a resolved file's absolute path plus the
// protocol it was rendered for, since the same Markdown file renders to
// different bytes for HTTPS (HTML) and Gemini (Gemtext).
type Key struct {
	AbsolutePath string
	Protocol     model.Protocol
}

func (k Key) groupKey() string {
	return fmt.Sprintf("%s\x00%s", k.AbsolutePath, k.Protocol)
}

// Entry is what gets cached: a sealed response body, its media type and any
// cache_max_age the pipeline computed for it.
type Entry struct {
	Body        []byte
	MediaType   string
	CacheMaxAge *int
}

// ComputeFunc produces the Entry for a cache miss.
type ComputeFunc func() (Entry, error)

// Cache coalesces concurrent misses for the same Key: the first caller to
// miss runs compute while later callers for the same key block on its
// result, via singleflight's per-key one-shot futures, matching the design
// note that waiters take a clone of the in-flight computation's result
// rather than each re-running it.
type Cache struct {
	lru   *lru.Cache[Key, Entry]
	group singleflight.Group
}

// New builds a Cache holding up to capacity entries.
func New(capacity int) (*Cache, error) {
	backing, err := lru.New[Key, Entry](capacity)
	if err != nil {
		return nil, model.NewError(model.KindInternalError, err)
	}
	return &Cache{lru: backing}, nil
}

// GetOrCompute returns the cached Entry for key, or runs compute exactly
// once across however many goroutines race to request the same key
// concurrently, caching and returning its result to all of them.
func (c *Cache) GetOrCompute(key Key, compute ComputeFunc) (Entry, error) {
	if entry, ok := c.lru.Get(key); ok {
		return entry, nil
	}

	v, err, _ := c.group.Do(key.groupKey(), func() (any, error) {
		// a computation for key may have finished between the miss above
		// and this call
		if entry, ok := c.lru.Get(key); ok {
			return entry, nil
		}
		entry, err := compute()
		if err != nil {
			return Entry{}, err
		}
		c.lru.Add(key, entry)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// Purge drops every cached entry. Nothing in rubyshd calls it: there is no
// content change signal or filesystem watcher, so entries live for the
// whole process.
func (c *Cache) Purge() {
	c.lru.Purge()
}
