package menu

import (
	"sync"
	"sync/atomic"
	"time"
)

// Default cache bounds. Overridable through the Builder.
const (
	defaultCacheTTL      = 5 * time.Second
	defaultCacheMax      = 4096
	cacheCleanupInterval = 10 * time.Second
)

const (
	compileStatusPending = iota
	compileStatusReady
	compileStatusError
)

// compileCache is the bounded, TTL-based cache from CacheKey to CompiledItem.
// It is one of the two structures mutated from multiple call sites and is
// internally synchronized; callers need no external locking. At most one
// computation is in flight per key under concurrent requests.
type compileCache struct {
	// entries maps CacheKey.String() -> *cacheEntry
	entries sync.Map

	// count tracks the number of stored entries for the size bound
	count atomic.Int64

	ttl        time.Duration
	maxEntries int

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// cacheEntry holds one cached compilation.
type cacheEntry struct {
	key CacheKey

	item *CompiledItem
	err  error

	// expiresAt is the TTL deadline (unix millis); 0 while pending
	expiresAt atomic.Int64

	// status: 0=pending, 1=ready, 2=error
	status atomic.Uint32

	// mu serializes computation for this key
	mu sync.Mutex
}

// newCompileCache creates the cache and starts its cleanup loop.
func newCompileCache(ttl time.Duration, maxEntries int) *compileCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMax
	}
	cc := &compileCache{
		ttl:             ttl,
		maxEntries:      maxEntries,
		cleanupInterval: cacheCleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go cc.cleanupLoop()
	return cc
}

// getOrCompute returns the cached item for key, or runs produce exactly once
// per key to fill it. The producer may report a different final key (a
// viewer-scope upgrade) and whether the result is cacheable at all.
func (cc *compileCache) getOrCompute(key CacheKey, produce func() (*CompiledItem, CacheKey, bool, error)) (*CompiledItem, error) {
	ks := key.String()
	now := time.Now().UnixMilli()

	if val, ok := cc.entries.Load(ks); ok {
		entry := val.(*cacheEntry)
		if entry.status.Load() == compileStatusReady && entry.expiresAt.Load() > now {
			return entry.item, nil
		}
	}

	entry := &cacheEntry{key: key}
	if actual, loaded := cc.entries.LoadOrStore(ks, entry); loaded {
		entry = actual.(*cacheEntry)
	} else {
		cc.count.Add(1)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Another caller may have finished while we waited on the lock.
	if entry.status.Load() == compileStatusReady && entry.expiresAt.Load() > time.Now().UnixMilli() {
		return entry.item, nil
	}

	item, finalKey, cacheable, err := produce()
	if err != nil {
		entry.err = err
		entry.status.Store(compileStatusError)
		cc.remove(ks)
		return nil, err
	}

	entry.item = item
	entry.status.Store(compileStatusReady)

	switch {
	case !cacheable:
		// Waiters on this entry still read the result; it just does not
		// survive for future lookups.
		entry.expiresAt.Store(0)
		cc.remove(ks)

	case finalKey != key:
		// Viewer-scope upgrade: the shared key must never serve a
		// context-dependent render to another viewer.
		entry.expiresAt.Store(0)
		cc.remove(ks)
		cc.store(finalKey, item)

	default:
		entry.expiresAt.Store(time.Now().Add(cc.ttl).UnixMilli())
	}

	cc.enforceBound()
	return item, nil
}

// get returns a live cached item for key, if any.
func (cc *compileCache) get(key CacheKey) (*CompiledItem, bool) {
	val, ok := cc.entries.Load(key.String())
	if !ok {
		return nil, false
	}
	entry := val.(*cacheEntry)
	if entry.status.Load() != compileStatusReady || entry.expiresAt.Load() <= time.Now().UnixMilli() {
		return nil, false
	}
	return entry.item, true
}

// store inserts a ready entry directly.
func (cc *compileCache) store(key CacheKey, item *CompiledItem) {
	entry := &cacheEntry{key: key, item: item}
	entry.status.Store(compileStatusReady)
	entry.expiresAt.Store(time.Now().Add(cc.ttl).UnixMilli())
	if _, loaded := cc.entries.Swap(key.String(), entry); !loaded {
		cc.count.Add(1)
	}
}

// remove deletes an entry if present.
func (cc *compileCache) remove(ks string) {
	if _, loaded := cc.entries.LoadAndDelete(ks); loaded {
		cc.count.Add(-1)
	}
}

// invalidateAll drops every entry.
func (cc *compileCache) invalidateAll() {
	cc.entries.Range(func(k, _ any) bool {
		cc.remove(k.(string))
		return true
	})
}

// invalidateMenu drops every entry belonging to a menu, titles included.
func (cc *compileCache) invalidateMenu(menuID string) {
	cc.entries.Range(func(k, v any) bool {
		if v.(*cacheEntry).key.Menu == menuID {
			cc.remove(k.(string))
		}
		return true
	})
}

// invalidateItems drops a menu's item entries but keeps its cached titles.
func (cc *compileCache) invalidateItems(menuID string) {
	cc.entries.Range(func(k, v any) bool {
		key := v.(*cacheEntry).key
		if key.Menu == menuID && !key.isTitle() {
			cc.remove(k.(string))
		}
		return true
	})
}

// invalidateViewer drops only entries whose key embeds the viewer's identity.
// Globally shared static entries stay intact.
func (cc *compileCache) invalidateViewer(viewerID string) {
	cc.entries.Range(func(k, v any) bool {
		key := v.(*cacheEntry).key
		if key.ViewerScoped && key.Viewer == viewerID {
			cc.remove(k.(string))
		}
		return true
	})
}

// enforceBound evicts expired entries when over the size bound, then entries
// closest to expiry until back under it.
func (cc *compileCache) enforceBound() {
	if int(cc.count.Load()) <= cc.maxEntries {
		return
	}

	now := time.Now().UnixMilli()
	cc.entries.Range(func(k, v any) bool {
		entry := v.(*cacheEntry)
		if entry.status.Load() == compileStatusReady && entry.expiresAt.Load() <= now {
			cc.remove(k.(string))
		}
		return int(cc.count.Load()) > cc.maxEntries
	})

	for int(cc.count.Load()) > cc.maxEntries {
		var oldestKey string
		var oldestAt int64
		cc.entries.Range(func(k, v any) bool {
			entry := v.(*cacheEntry)
			if entry.status.Load() != compileStatusReady {
				return true
			}
			at := entry.expiresAt.Load()
			if oldestKey == "" || at < oldestAt {
				oldestKey, oldestAt = k.(string), at
			}
			return true
		})
		if oldestKey == "" {
			return
		}
		cc.remove(oldestKey)
	}
}

// cleanupLoop periodically drops expired entries.
func (cc *compileCache) cleanupLoop() {
	ticker := time.NewTicker(cc.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cc.stopCleanup:
			return
		case <-ticker.C:
			cc.cleanup()
		}
	}
}

// cleanup removes expired entries.
func (cc *compileCache) cleanup() {
	now := time.Now().UnixMilli()
	cc.entries.Range(func(k, v any) bool {
		entry := v.(*cacheEntry)
		if entry.status.Load() == compileStatusReady && entry.expiresAt.Load() <= now {
			cc.remove(k.(string))
		}
		return true
	})
}

// stop shuts the cleanup loop down.
func (cc *compileCache) stop() {
	cc.stopOnce.Do(func() {
		close(cc.stopCleanup)
	})
}
