package schema

import (
	"sort"
	"time"
)

// expanderEntry is one cached value in the expander's LRU, generic over
// the two payload shapes it holds (bundle metadata and field lists).
type expanderEntry struct {
	key         string
	value       any
	expiresAt   time.Time
	accessCount int
	lastAccess  time.Time
}

// expanderCache is a small byte-free, time-bounded LRU keyed by
// "database:bundle" or "database:bundle:fields" (§4.5). Unlike the
// statement cache it has no byte budget; eviction is purely by entry count
// once size exceeds cacheSize, dropping the 20% lowest-access, oldest
// entries.
type expanderCache struct {
	ttl      time.Duration
	cacheSize int
	entries  map[string]*expanderEntry
}

func newExpanderCache(ttl time.Duration, cacheSize int) *expanderCache {
	return &expanderCache{ttl: ttl, cacheSize: cacheSize, entries: make(map[string]*expanderEntry)}
}

// get returns a cached value if present and not expired.
func (e *expanderCache) get(key string) (any, bool) {
	entry, ok := e.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(e.entries, key)
		return nil, false
	}
	entry.accessCount++
	entry.lastAccess = time.Now()
	return entry.value, true
}

// put inserts or overwrites a cached value and evicts if the cache has
// grown past cacheSize.
func (e *expanderCache) put(key string, value any) {
	now := time.Now()
	e.entries[key] = &expanderEntry{
		key: key, value: value, expiresAt: now.Add(e.ttl),
		accessCount: 1, lastAccess: now,
	}
	e.evictIfNeeded()
}

// evictIfNeeded drops the 20% lowest-access, oldest entries once the cache
// exceeds cacheSize (§4.5: "Eviction removes the 20% lowest-access, oldest
// entries when size exceeds cache_size").
func (e *expanderCache) evictIfNeeded() {
	if len(e.entries) <= e.cacheSize {
		return
	}
	all := make([]*expanderEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		all = append(all, entry)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].accessCount != all[j].accessCount {
			return all[i].accessCount < all[j].accessCount
		}
		return all[i].lastAccess.Before(all[j].lastAccess)
	})
	toEvict := len(e.entries) / 5
	if toEvict == 0 {
		toEvict = 1
	}
	for i := 0; i < toEvict && i < len(all); i++ {
		delete(e.entries, all[i].key)
	}
}
