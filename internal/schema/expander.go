package schema

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Strategy controls how aggressively the expander prefetches related
// bundles after a server load (§4.5).
type Strategy string

const (
	// StrategyConservative never prefetches.
	StrategyConservative Strategy = "conservative"
	// StrategyModerate prefetches bundles reachable via relationships, and
	// fields for a bundle whose field list is still empty.
	StrategyModerate Strategy = "moderate"
	// StrategyAggressive additionally prefetches every other bundle in the
	// same database.
	StrategyAggressive Strategy = "aggressive"
)

const (
	// DefaultExpanderCacheSize is the entry-count threshold before eviction
	// kicks in (§6).
	DefaultExpanderCacheSize = 50
	// DefaultExpanderCacheTTL is how long a cached bundle/field entry stays
	// valid (§6).
	DefaultExpanderCacheTTL = 5 * time.Minute
	// DefaultExpanderBackgroundDelay is how long prefetch jobs wait in the
	// queue before a batch is dispatched (§6).
	DefaultExpanderBackgroundDelay = 500 * time.Millisecond
	// DefaultExpanderMaxConcurrent bounds concurrent prefetch loads
	// regardless of strategy (§6).
	DefaultExpanderMaxConcurrent = 3
)

type prefetchJob struct {
	database string
	bundle   string
	priority int
}

// Expander sits between the suggestion engine and the schema server (§4.5):
// expand_bundle checks its own LRU, then the schema context, then the
// server, writing server results back into the context and scheduling
// prefetches per its Strategy. The prefetch queue debounces with a single
// time.AfterFunc timer reset on every enqueue, and dispatches its batches
// through an errgroup bounded with SetLimit so prefetch fan-out never
// outpaces maxConcurrent.
type Expander struct {
	mu       sync.Mutex
	bundles  *expanderCache
	fields   *expanderCache
	ctx      *Context
	server   Server
	strategy Strategy

	maxConcurrent   int
	backgroundDelay time.Duration

	queue []prefetchJob
	timer *time.Timer
}

// ExpanderOption overrides one of NewExpander's defaults.
type ExpanderOption func(*expanderSettings)

type expanderSettings struct {
	cacheSize       int
	cacheTTL        time.Duration
	maxConcurrent   int
	backgroundDelay time.Duration
}

// WithExpanderCacheSize overrides DefaultExpanderCacheSize.
func WithExpanderCacheSize(n int) ExpanderOption {
	return func(s *expanderSettings) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithExpanderCacheTTL overrides DefaultExpanderCacheTTL.
func WithExpanderCacheTTL(d time.Duration) ExpanderOption {
	return func(s *expanderSettings) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithExpanderMaxConcurrent overrides DefaultExpanderMaxConcurrent.
func WithExpanderMaxConcurrent(n int) ExpanderOption {
	return func(s *expanderSettings) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithExpanderBackgroundDelay overrides DefaultExpanderBackgroundDelay.
func WithExpanderBackgroundDelay(d time.Duration) ExpanderOption {
	return func(s *expanderSettings) {
		if d > 0 {
			s.backgroundDelay = d
		}
	}
}

// NewExpander builds an Expander over ctx and server with the given
// strategy, applying any ExpanderOption overrides on top of the package
// defaults for cache size/TTL/concurrency/batch delay.
func NewExpander(ctx *Context, server Server, strategy Strategy, opts ...ExpanderOption) *Expander {
	settings := expanderSettings{
		cacheSize:       DefaultExpanderCacheSize,
		cacheTTL:        DefaultExpanderCacheTTL,
		maxConcurrent:   DefaultExpanderMaxConcurrent,
		backgroundDelay: DefaultExpanderBackgroundDelay,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Expander{
		bundles:         newExpanderCache(settings.cacheTTL, settings.cacheSize),
		fields:          newExpanderCache(settings.cacheTTL, settings.cacheSize),
		ctx:             ctx,
		server:          server,
		strategy:        strategy,
		maxConcurrent:   settings.maxConcurrent,
		backgroundDelay: settings.backgroundDelay,
	}
}

func bundleCacheKey(database, bundle string) string {
	return database + ":" + bundle
}

func fieldCacheKey(database, bundle string) string {
	return database + ":" + bundle + ":fields"
}

// ExpandBundle resolves a bundle's full definition, checking the expander's
// own cache, then the schema context, then falling back to the server
// (§4.5: "checks cache -> context -> server in that order"). A server
// error is logged and reported as ok=false; it never propagates to the
// suggestion path.
func (e *Expander) ExpandBundle(ctx context.Context, database, bundle string) (Bundle, bool) {
	e.mu.Lock()
	if cached, ok := e.bundles.get(bundleCacheKey(database, bundle)); ok {
		e.mu.Unlock()
		return cached.(Bundle), true
	}
	e.mu.Unlock()

	if b, ok := e.ctx.GetBundle(database, bundle); ok {
		e.mu.Lock()
		e.bundles.put(bundleCacheKey(database, bundle), b)
		e.mu.Unlock()
		return b, true
	}

	def, err := e.server.GetBundle(ctx, database, bundle)
	if err != nil {
		slog.Warn("expander: server bundle load failed", "database", database, "bundle", bundle, "error", err)
		return Bundle{}, false
	}
	def.Name = bundle // the requested name is authoritative; the server DTO need not echo it
	b := *bundleFromDefinition(database, def)
	e.ctx.cacheBundleFromServer(database, b)

	e.mu.Lock()
	e.bundles.put(bundleCacheKey(database, bundle), b)
	e.mu.Unlock()

	e.schedulePrefetch(database, bundle, b)
	return b, true
}

// ExpandFields resolves a bundle's field list through the same
// cache/context/server chain as ExpandBundle.
func (e *Expander) ExpandFields(ctx context.Context, database, bundle string) ([]Field, bool) {
	e.mu.Lock()
	if cached, ok := e.fields.get(fieldCacheKey(database, bundle)); ok {
		e.mu.Unlock()
		return cached.([]Field), true
	}
	e.mu.Unlock()

	if b, ok := e.ctx.GetBundle(database, bundle); ok && len(b.Fields) > 0 {
		fields := fieldsOf(b)
		e.mu.Lock()
		e.fields.put(fieldCacheKey(database, bundle), fields)
		e.mu.Unlock()
		return fields, true
	}

	defs, err := e.server.GetFields(ctx, database, bundle)
	if err != nil {
		slog.Warn("expander: server field load failed", "database", database, "bundle", bundle, "error", err)
		return nil, false
	}
	fields := make([]Field, 0, len(defs))
	for _, def := range defs {
		fields = append(fields, Field{Name: def.Name, Type: def.Type, Constraints: def.Constraints})
	}

	e.mu.Lock()
	e.fields.put(fieldCacheKey(database, bundle), fields)
	e.mu.Unlock()
	return fields, true
}

func fieldsOf(b Bundle) []Field {
	out := make([]Field, 0, len(b.Fields))
	for _, f := range b.Fields {
		out = append(out, *f)
	}
	return out
}

// schedulePrefetch enqueues related work after a server load, per strategy.
// Moderate prefetches bundles reachable via relationships (and this
// bundle's own fields if they came back empty); aggressive additionally
// queues every other bundle in the database. Conservative enqueues
// nothing.
func (e *Expander) schedulePrefetch(database, bundle string, loaded Bundle) {
	if e.strategy == StrategyConservative {
		return
	}

	var jobs []prefetchJob
	for _, rel := range loaded.Relationships {
		related := rel.ToBundle
		if related == bundle {
			related = rel.FromBundle
		}
		if related != "" && related != bundle {
			jobs = append(jobs, prefetchJob{database: database, bundle: related, priority: 5})
		}
	}
	if len(loaded.Fields) == 0 {
		jobs = append(jobs, prefetchJob{database: database, bundle: bundle, priority: 8})
	}

	if e.strategy == StrategyAggressive {
		for _, name := range e.ctx.GetAllBundles(database) {
			if name != bundle {
				jobs = append(jobs, prefetchJob{database: database, bundle: name, priority: 1})
			}
		}
	}

	if len(jobs) == 0 {
		return
	}

	e.mu.Lock()
	e.queue = append(e.queue, jobs...)
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.backgroundDelay, e.drainQueue)
	e.mu.Unlock()
}

// drainQueue dispatches the current prefetch queue in priority order,
// bounded to maxConcurrent concurrent server loads via errgroup.SetLimit.
func (e *Expander) drainQueue() {
	e.mu.Lock()
	jobs := e.queue
	e.queue = nil
	e.timer = nil
	e.mu.Unlock()

	if len(jobs) == 0 {
		return
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].priority > jobs[j].priority })

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(e.maxConcurrent)
	for _, job := range jobs {
		job := job
		group.Go(func() error {
			e.ExpandBundle(ctx, job.database, job.bundle)
			return nil
		})
	}
	_ = group.Wait()
}
