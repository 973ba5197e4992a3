// Package service implements the stateful facade (§4.8): the pluggable
// language-service contract a host embeds, one Facade per open document.
// It owns that document's statement cache partition, debounced validation
// queue, schema context, context expander, and suggestion engine, wiring
// the packages built around it (grammar, cache, statementparser, schema,
// validate, suggest, render) into the single entry point named in §6.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/config"
	"github.com/querycanvas/langservice/internal/docql"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/graphql"
	"github.com/querycanvas/langservice/internal/schema"
	"github.com/querycanvas/langservice/internal/statementparser"
	"github.com/querycanvas/langservice/internal/suggest"
)

// Language selects which lexer/grammar/validator pipeline a Facade runs.
type Language string

const (
	LanguageDocQL   Language = "docql"
	LanguageGraphQL Language = "graphql"
)

// State is the facade's lifecycle (§4.8): uninitialized -> initialized ->
// active (on the first UpdateDocument) -> disposed. Disposed is terminal: no
// method moves a facade out of it, and an active facade does not return to
// initialized.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateActive        State = "active"
	StateDisposed      State = "disposed"
)

var (
	grammarOnce   sync.Once
	grammarLoaded *grammar.Engine
)

// sharedGrammarEngine lazily loads every statement family into the
// process-wide grammar singleton exactly once: "There is one engine,
// configured with one grammar per statement family" (§4.2), shared by
// every Facade in the process rather than reloaded per document.
func sharedGrammarEngine() *grammar.Engine {
	grammarOnce.Do(func() {
		families := []grammar.Family{grammar.FamilyDDL, grammar.FamilyDML, grammar.FamilyDOL, grammar.FamilyMigration}
		grammars := make(map[grammar.Family]*grammar.Grammar, len(families))
		for _, family := range families {
			g, err := grammar.LoadFamily(family)
			if err != nil {
				panic(fmt.Sprintf("service: embedded grammar for family %s failed to load: %v", family, err))
			}
			grammars[family] = g
		}
		grammar.Default().Load(grammars)
		grammarLoaded = grammar.Default()
	})
	return grammarLoaded
}

// Facade is the per-document state owner (§4.8). The host mints one Facade
// per open document; DocumentID is either supplied or minted fresh by
// Initialize.
type Facade struct {
	mu         sync.Mutex
	state      State
	language   Language
	documentID string
	cfg        config.Config

	grammarEngine *grammar.Engine
	schemaCtx     *schema.Context
	expander      *schema.Expander
	server        schema.Server
	suggestEngine *suggest.Engine
	cache         *cache.Cache
	queue         *statementparser.Queue
	storage       cache.Storage
	persister     *cache.Persister

	text          string
	docqlTokens   []docql.Token
	graphqlTokens []graphql.Token

	cancelBackground context.CancelFunc
}

// Option configures optional Facade dependencies beyond the §6 defaults.
type Option func(*Facade)

// WithDocumentID pins the facade to a host-supplied document id (the "uri"
// parameter of validate/parse_statements) instead of a freshly minted
// uuid.
func WithDocumentID(id string) Option {
	return func(f *Facade) { f.documentID = id }
}

// WithStorage injects a persistence backend (§4.3's "a storage interface
// is injected"). Without one, the cache never persists across process
// restarts.
func WithStorage(storage cache.Storage) Option {
	return func(f *Facade) { f.storage = storage }
}

// WithExpanderStrategy overrides the default moderate prefetch strategy.
func WithExpanderStrategy(strategy schema.Strategy) Option {
	return func(f *Facade) {
		f.expander = schema.NewExpander(f.schemaCtx, f.server, strategy, expanderOptionsFromConfig(f.cfg)...)
	}
}

func expanderOptionsFromConfig(cfg config.Config) []schema.ExpanderOption {
	return []schema.ExpanderOption{
		schema.WithExpanderCacheSize(cfg.ExpanderCacheSize),
		schema.WithExpanderCacheTTL(cfg.ExpanderCacheTTL),
		schema.WithExpanderMaxConcurrent(int(cfg.ExpanderMaxConcurrent)),
		schema.WithExpanderBackgroundDelay(cfg.ExpanderBackgroundDelay),
	}
}

// New builds an uninitialized Facade for language, backed by server for
// schema refreshes and prefetch, configured from cfg.
func New(language Language, cfg config.Config, server schema.Server, opts ...Option) *Facade {
	schemaCtx := schema.New(cfg.SchemaStalenessThreshold)

	f := &Facade{
		state:         StateUninitialized,
		language:      language,
		cfg:           cfg,
		grammarEngine: sharedGrammarEngine(),
		schemaCtx:     schemaCtx,
		expander:      schema.NewExpander(schemaCtx, server, schema.Strategy(cfg.ExpanderStrategy), expanderOptionsFromConfig(cfg)...),
		server:        server,
		suggestEngine: suggest.NewEngine(cfg.SuggestionMemoTTL, cfg.SuggestionMemoCacheSize),
		cache:         cache.New(cfg.StatementCacheBufferSize, cfg.AccessWeightFactor),
	}
	f.queue = statementparser.NewQueue(f.cache, f.validateStatement, cfg.ValidationDebounceDelay)

	for _, opt := range opts {
		opt(f)
	}
	if f.documentID == "" {
		f.documentID = uuid.NewString()
	}
	return f
}

// Initialize transitions uninitialized -> initialized, starting the
// background persistence timer (when a Storage is configured) and
// restoring any prior on-disk snapshot for this document id.
func (f *Facade) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateUninitialized {
		return fmt.Errorf("service: Initialize called in state %s", f.state)
	}

	if f.storage != nil {
		if err := f.cache.Load(f.storage, f.documentID); err != nil {
			err = oops.Code("CACHE_RESTORE_FAILED").With("document_id", f.documentID).Wrap(err)
			slog.Warn("service: cache snapshot restore failed", "error", err)
		}
		f.persister = cache.NewPersister(f.cache, f.storage, f.cfg.CachePersistenceInterval)
		f.persister.Track(f.documentID)
		bgCtx, cancel := context.WithCancel(context.Background())
		f.cancelBackground = cancel
		f.persister.Start(bgCtx)
	}

	f.state = StateInitialized
	return nil
}

// Dispose tears down timers and caches owned by this document (§4.8): it
// stops the pending debounced validation, flushes and untracks the
// document's persisted snapshot, cancels the background persistence loop,
// and clears the document's cache partition. A RefreshSchema call already
// in flight is not cancelled; it runs until its own context or the
// server-call timeout ends it. The facade is unusable afterward.
func (f *Facade) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDisposed {
		return
	}

	f.queue.Cancel(f.documentID)
	if f.persister != nil {
		f.persister.FlushAll()
		f.persister.Untrack(f.documentID)
	}
	if f.cancelBackground != nil {
		f.cancelBackground()
	}
	f.cache.Clear(f.documentID)
	f.state = StateDisposed
}

// DocumentID returns this facade's document identifier.
func (f *Facade) DocumentID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.documentID
}

// State reports the facade's current lifecycle state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Facade) markActive() {
	if f.state == StateInitialized {
		f.state = StateActive
	}
}
