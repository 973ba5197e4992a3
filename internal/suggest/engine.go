package suggest

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/schema"
)

var partialWordPattern = regexp.MustCompile(`[A-Za-z0-9_]*$`)

// Engine owns the usage counters and memoization cache backing one
// document's (or one process's, if shared) suggestion requests. It holds
// no schema or grammar state itself — those are supplied per call, since
// they are already owned by the schema context and the grammar singleton.
type Engine struct {
	mu    sync.Mutex
	usage *usageCounters
	memo  *memo
}

// NewEngine constructs an Engine with the given memoization TTL and cache
// size; a non-positive value falls back to the §4.7 default for that field.
func NewEngine(memoTTL time.Duration, memoCacheSize int) *Engine {
	return &Engine{usage: newUsageCounters(), memo: newMemo(memoTTL, memoCacheSize)}
}

// Suggest runs the full §4.7 pipeline for one cursor position: partial-word
// extraction, candidate generation (language-specific), dedup, ranking,
// and fuzzy filtering, with the finished list memoized by position.
func (e *Engine) Suggest(ge *grammar.Engine, schemaCtx *schema.Context, language Language, tokens []grammar.Token, text string, cursorOffset int) []Suggestion {
	partial := partialWord(text, cursorOffset)
	complete := completeTokens(tokens, cursorOffset)

	key := memoKey(complete, cursorOffset, partial)
	if cached, ok := e.memo.get(key); ok {
		memoHits.Inc()
		return cached
	}
	memoMisses.Inc()

	var raw []Suggestion
	switch language {
	case LanguageGraphQL:
		raw = suggestGraphQL(schemaCtx, complete)
	default:
		raw = suggestDocQL(ge, schemaCtx, complete)
	}

	e.mu.Lock()
	ranked := e.rank(dedup(raw))
	e.mu.Unlock()

	final := lo.Filter(ranked, func(s Suggestion, _ int) bool {
		_, ok := fuzzyScore(partial, s.Label)
		return ok
	})

	e.memo.put(key, final)
	return final
}

// RecordUsage increments label's acceptance count, feeding future rank()
// calls (§4.7's recordUsage).
func (e *Engine) RecordUsage(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usage.record(label)
}

func partialWord(text string, cursorOffset int) string {
	if cursorOffset < 0 {
		cursorOffset = 0
	}
	if cursorOffset > len(text) {
		cursorOffset = len(text)
	}
	return partialWordPattern.FindString(text[:cursorOffset])
}

// completeTokens keeps every token that ends at or before the cursor,
// which naturally excludes one that straddles it (§4.7 step 2).
func completeTokens(tokens []grammar.Token, cursorOffset int) []grammar.Token {
	var out []grammar.Token
	for _, tok := range tokens {
		if tok.Pos.EndOffset <= cursorOffset {
			out = append(out, tok)
		}
	}
	return out
}

// dedup keeps, for each (label, kind) pair, the highest-priority variant
// (§4.7 step 7).
func dedup(suggestions []Suggestion) []Suggestion {
	groups := lo.GroupBy(suggestions, func(s Suggestion) string { return s.Label + "\x00" + string(s.Kind) })
	out := make([]Suggestion, 0, len(groups))
	for _, group := range groups {
		out = append(out, lo.MaxBy(group, func(a, b Suggestion) bool { return a.Priority > b.Priority }))
	}
	return out
}

// rank applies the usage-count boost, sorts by final priority descending
// then label ascending, and stamps sort_text (§4.7 step 8).
func (e *Engine) rank(suggestions []Suggestion) []Suggestion {
	for i := range suggestions {
		boost := e.usage.get(suggestions[i].Label) * 2
		if boost > 20 {
			boost = 20
		}
		final := suggestions[i].Priority + boost
		suggestions[i].Priority = final
		suggestions[i].SortText = fmt.Sprintf("%04d_%s", 1000-final, suggestions[i].Label)
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Priority != suggestions[j].Priority {
			return suggestions[i].Priority > suggestions[j].Priority
		}
		return suggestions[i].Label < suggestions[j].Label
	})
	return suggestions
}
