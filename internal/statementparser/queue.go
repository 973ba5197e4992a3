package statementparser

import (
	"sort"
	"sync"
	"time"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/errs"
)

// DefaultValidationDebounceDelay is how long the queue waits for quiescence
// before validating (§6).
const DefaultValidationDebounceDelay = 1000 * time.Millisecond

// Validator runs grammar and cross-statement validation on one statement
// and reports its outcome. The service facade supplies the real
// implementation (internal/validate); tests may supply a stub.
type Validator func(documentID string, stmt *cache.Statement) (isValid bool, diagnostics []errs.Diagnostic)

type queuedEntry struct {
	hash     string
	priority int
}

// Queue is one document's debounced validation queue. Changes coalesce: a
// change that arrives before the debounce timer fires simply extends the
// wait rather than scheduling a second pass, the standard time.AfterFunc
// reset-on-every-call debounce.
type Queue struct {
	mu            sync.Mutex
	cache         *cache.Cache
	validate      Validator
	debounceDelay time.Duration
	timers        map[string]*time.Timer
	pending       map[string][]queuedEntry
}

// NewQueue builds a Queue backed by c, validating dirty statements with
// validate once each document's debounce timer fires.
func NewQueue(c *cache.Cache, validate Validator, debounceDelay time.Duration) *Queue {
	if debounceDelay <= 0 {
		debounceDelay = DefaultValidationDebounceDelay
	}
	return &Queue{
		cache:         c,
		validate:      validate,
		debounceDelay: debounceDelay,
		timers:        make(map[string]*time.Timer),
		pending:       make(map[string][]queuedEntry),
	}
}

// OnTextChange takes a document's freshly split statements, diffs them by hash
// against the cache, inserts the changed ones as dirty, enqueues them for
// validation, and restarts the debounce timer (§4.4). It returns the
// statements that were newly inserted or changed.
func (q *Queue) OnTextChange(documentID string, statements []*cache.Statement) []*cache.Statement {
	var changed []*cache.Statement
	for _, stmt := range statements {
		if q.cache.Has(documentID, stmt.Hash) {
			continue // unchanged text, same hash, already cached
		}
		q.cache.Put(documentID, stmt)
		changed = append(changed, stmt)
	}
	for _, stmt := range changed {
		q.Enqueue(documentID, stmt.Hash, 0)
	}
	q.restartTimer(documentID)
	return changed
}

// Enqueue adds one dirty statement hash to a document's queue with the
// given priority (higher runs first within one validation pass).
func (q *Queue) Enqueue(documentID, hash string, priority int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.pending[documentID] {
		if e.hash == hash {
			return // already queued
		}
	}
	q.pending[documentID] = append(q.pending[documentID], queuedEntry{hash: hash, priority: priority})
	dirtyBacklogGauge.Set(float64(q.backlogSize()))
}

func (q *Queue) restartTimer(documentID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[documentID]; ok {
		t.Stop()
	}
	q.timers[documentID] = time.AfterFunc(q.debounceDelay, func() {
		q.drain(documentID)
	})
}

// Cancel stops a document's pending debounce timer without validating,
// the "update_document cancels the pending debounced validation" rule
// (§5); the next OnTextChange restarts it.
func (q *Queue) Cancel(documentID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[documentID]; ok {
		t.Stop()
		delete(q.timers, documentID)
	}
}

// ForceValidation bypasses the debounce timer and validates immediately.
func (q *Queue) ForceValidation(documentID string) {
	q.Cancel(documentID)
	q.drain(documentID)
}

func (q *Queue) drain(documentID string) {
	q.mu.Lock()
	entries := q.pending[documentID]
	delete(q.pending, documentID)
	delete(q.timers, documentID)
	dirtyBacklogGauge.Set(float64(q.backlogSize()))
	q.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].priority > entries[j].priority })

	start := time.Now()
	for _, e := range entries {
		stmt, ok := q.cache.Get(documentID, e.hash)
		if !ok {
			continue
		}
		isValid, diagnostics := q.validate(documentID, stmt)
		q.cache.MarkClean(documentID, e.hash, isValid, diagnostics)
	}
	if len(entries) > 0 {
		validationPassDuration.Observe(time.Since(start).Seconds())
	}
}

// backlogSize sums pending entries across every document. Callers must hold
// q.mu.
func (q *Queue) backlogSize() int {
	total := 0
	for _, entries := range q.pending {
		total += len(entries)
	}
	return total
}
