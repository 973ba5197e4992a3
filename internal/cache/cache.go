package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/querycanvas/langservice/internal/errs"
)

// DefaultAccessWeightFactor is the weight given to access_count in the
// eviction score versus recency (§6).
const DefaultAccessWeightFactor = 0.7

// partition is one document's exclusively-owned slice of the cache (§3:
// "Cross-document sharing is forbidden").
type partition struct {
	entries    map[string]*Statement // keyed by Statement.Hash
	totalBytes int64
	hits       int64
	misses     int64
}

func newPartition() *partition {
	return &partition{entries: make(map[string]*Statement)}
}

// Cache is the per-document statement cache. The service facade builds one
// Cache per Facade, that is per open document; within a Cache each
// document's entries are isolated by its own byte budget and dirty state.
type Cache struct {
	mu                 sync.Mutex
	bufferSize         int64
	accessWeightFactor float64
	documents          map[string]*partition
}

// New constructs a Cache with the given per-document byte budget and access
// weight factor. A non-positive accessWeightFactor falls back to the default.
func New(bufferSize int64, accessWeightFactor float64) *Cache {
	if accessWeightFactor <= 0 {
		accessWeightFactor = DefaultAccessWeightFactor
	}
	return &Cache{
		bufferSize:         bufferSize,
		accessWeightFactor: accessWeightFactor,
		documents:          make(map[string]*partition),
	}
}

func (c *Cache) partitionFor(documentID string) *partition {
	p, ok := c.documents[documentID]
	if !ok {
		p = newPartition()
		c.documents[documentID] = p
	}
	return p
}

// Put inserts or overwrites a statement, charging its byte size against the
// document's budget and evicting as needed (§4.3).
func (c *Cache) Put(documentID string, stmt *Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partitionFor(documentID)
	now := time.Now()
	if existing, ok := p.entries[stmt.Hash]; ok {
		p.totalBytes -= existing.ByteSize
	}
	stmt.AccessCount = 1
	stmt.TimestampCreated = now
	stmt.TimestampLastAccess = now
	stmt.IsDirty = true
	p.entries[stmt.Hash] = stmt
	p.totalBytes += stmt.ByteSize

	c.evict(p)
	c.refreshBytesGauge()
}

// Get looks up a statement by hash, bumping its access stats on a hit.
func (c *Cache) Get(documentID, hash string) (*Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partitionFor(documentID)
	stmt, ok := p.entries[hash]
	if !ok {
		p.misses++
		cacheMisses.Inc()
		return nil, false
	}
	p.hits++
	cacheHits.Inc()
	stmt.AccessCount++
	stmt.TimestampLastAccess = time.Now()
	return stmt, true
}

// Has reports whether a hash is present without affecting hit/miss stats,
// for internal diffing (e.g. statementparser's reparse-and-diff step) where
// the lookup is not a real suggestion/validation cache access.
func (c *Cache) Has(documentID, hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.partitionFor(documentID).entries[hash]
	return ok
}

// HitRate returns hits / (hits + misses) for a document, or 0 if there have
// been no Get calls yet.
func (c *Cache) HitRate(documentID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.partitionFor(documentID)
	total := p.hits + p.misses
	if total == 0 {
		return 0
	}
	return float64(p.hits) / float64(total)
}

// MarkDirty flips is_dirty to true for an entry.
func (c *Cache) MarkDirty(documentID, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stmt, ok := c.partitionFor(documentID).entries[hash]; ok {
		stmt.IsDirty = true
	}
}

// MarkClean flips is_dirty to false, stores the validity flag, and clears
// the per-entry error list when isValid is true.
func (c *Cache) MarkClean(documentID, hash string, isValid bool, diagnostics []errs.Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stmt, ok := c.partitionFor(documentID).entries[hash]
	if !ok {
		return
	}
	stmt.IsDirty = false
	stmt.IsValid = isValid
	if isValid {
		stmt.Errors = nil
	} else {
		stmt.Errors = diagnostics
	}
}

// DirtyStatements returns every dirty entry for a document, for validation
// queueing.
func (c *Cache) DirtyStatements(documentID string) []*Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.partitionFor(documentID)
	out := make([]*Statement, 0, len(p.entries))
	for _, stmt := range p.entries {
		if stmt.IsDirty {
			out = append(out, stmt)
		}
	}
	return out
}

// Statements returns every entry for a document (dirty or clean), ordered
// by source position, for callers that need the full current statement set
// rather than just the dirty subset (e.g. aggregating a document-wide
// ValidationResult).
func (c *Cache) Statements(documentID string) []*Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.partitionFor(documentID)
	out := make([]*Statement, 0, len(p.entries))
	for _, stmt := range p.entries {
		out = append(out, stmt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OffsetStart < out[j].OffsetStart })
	return out
}

// Clear removes every entry for a document.
func (c *Cache) Clear(documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.documents, documentID)
	c.refreshBytesGauge()
}

// TotalBytes returns the live byte total charged against a document.
func (c *Cache) TotalBytes(documentID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partitionFor(documentID).totalBytes
}

// evict drops lowest-scoring entries until the partition fits its budget.
// Must be called with c.mu held. Dirty entries are protected unless the
// partition is entirely dirty and still over budget, in which case the
// oldest dirty entries are evicted and the forced-dirty-eviction counter is
// incremented (§9 design note: dirty entries are never silently dropped).
func (c *Cache) evict(p *partition) {
	if p.totalBytes <= c.bufferSize {
		return
	}

	clean := make([]*Statement, 0, len(p.entries))
	for _, stmt := range p.entries {
		if !stmt.IsDirty {
			clean = append(clean, stmt)
		}
	}
	newest, oldest := entryTimestampBounds(p.entries)
	sort.Slice(clean, func(i, j int) bool {
		return c.score(clean[i], newest, oldest) < c.score(clean[j], newest, oldest)
	})
	for _, stmt := range clean {
		if p.totalBytes <= c.bufferSize {
			return
		}
		delete(p.entries, stmt.Hash)
		p.totalBytes -= stmt.ByteSize
		cacheEvictions.Inc()
	}

	if p.totalBytes <= c.bufferSize {
		return
	}

	dirty := make([]*Statement, 0, len(p.entries))
	for _, stmt := range p.entries {
		dirty = append(dirty, stmt)
	}
	sort.Slice(dirty, func(i, j int) bool {
		return dirty[i].TimestampCreated.Before(dirty[j].TimestampCreated)
	})
	for _, stmt := range dirty {
		if p.totalBytes <= c.bufferSize {
			return
		}
		delete(p.entries, stmt.Hash)
		p.totalBytes -= stmt.ByteSize
		cacheEvictions.Inc()
		forcedDirtyEvictions.Inc()
	}
}

// score computes access_weight_factor*access_count + (1-factor)*recency,
// recency_score normalized to [0,1] against the most recently touched
// entry in the partition: the entry accessed (or created, if never
// accessed again) most recently scores 1, the least recently touched
// scores 0. Using timestamp_last_access rather than timestamp_created
// means a read via Get genuinely protects an entry from eviction, not
// just repeated writes of the same statement.
func (c *Cache) score(stmt *Statement, newest, oldest time.Time) float64 {
	recency := 1.0
	if span := newest.Sub(oldest); span > 0 {
		recency = 1 - float64(newest.Sub(stmt.TimestampLastAccess))/float64(span)
	}
	return c.accessWeightFactor*float64(stmt.AccessCount) + (1-c.accessWeightFactor)*recency
}

func entryTimestampBounds(entries map[string]*Statement) (newest, oldest time.Time) {
	first := true
	for _, stmt := range entries {
		if first {
			newest, oldest = stmt.TimestampLastAccess, stmt.TimestampLastAccess
			first = false
			continue
		}
		if stmt.TimestampLastAccess.After(newest) {
			newest = stmt.TimestampLastAccess
		}
		if stmt.TimestampLastAccess.Before(oldest) {
			oldest = stmt.TimestampLastAccess
		}
	}
	return newest, oldest
}

func (c *Cache) refreshBytesGauge() {
	var total int64
	for _, p := range c.documents {
		total += p.totalBytes
	}
	cacheBytesGauge.Set(float64(total))
}
