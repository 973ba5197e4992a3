package grammar

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// familyByLeadingKeyword maps a statement's first significant token's text
// (case-insensitive) to the grammar family it belongs to, before any
// per-family entry is tried.
var familyByLeadingKeyword = map[string]Family{
	"CREATE": FamilyDDL, "ALTER": FamilyDDL, "DROP": FamilyDDL,
	"SELECT": FamilyDML, "INSERT": FamilyDML, "UPDATE": FamilyDML, "DELETE": FamilyDML,
	"GRANT": FamilyDOL, "REVOKE": FamilyDOL, "USE": FamilyDOL,
	"MIGRATION": FamilyMigration, "APPLY": FamilyMigration,
	"VALIDATE": FamilyMigration, "ROLLBACK": FamilyMigration,
}

// FamilyForLeadingToken resolves the statement family from the first
// significant token's text. ok is false when no family claims that
// keyword, the caller's cue to report UNKNOWN_STATEMENT.
func FamilyForLeadingToken(text string) (Family, bool) {
	f, ok := familyByLeadingKeyword[strings.ToUpper(text)]
	return f, ok
}

// ValidateResult is the outcome of validating one statement's tokens
// against its dispatched rule.
type ValidateResult struct {
	Valid  bool
	Errors []MatchError
}

// Validate tries every alternative production of the entry rule in turn. A
// production "passes" only if it matches and consumes every token; a
// production that matches but leaves tokens over reports UNEXPECTED_TOKEN
// at the first surplus token and the next alternative is tried. If every
// alternative fails, the furthest-advancing alternative's errors win.
func Validate(g *Grammar, entryRule string, tokens []Token) ValidateResult {
	rule, ok := g.Rule(entryRule)
	if !ok {
		return ValidateResult{Valid: false, Errors: []MatchError{
			{Code: "UNKNOWN_STATEMENT", Message: "no grammar entry for " + entryRule},
		}}
	}
	if len(tokens) == 0 {
		return ValidateResult{Valid: false, Errors: []MatchError{
			{Code: "EMPTY_STATEMENT", Message: "statement has no tokens"},
		}}
	}

	var bestEnd int = -1
	var bestErrs []MatchError
	for _, prod := range rule.Productions {
		end, ok, errs := matchProduction(prod.Symbols, tokens, 0, g, 0)
		if ok {
			if end == len(tokens) {
				return ValidateResult{Valid: true}
			}
			t := tokens[end]
			surplus := []MatchError{{Code: "UNEXPECTED_TOKEN", Message: "unexpected token " + t.Text, Token: &t}}
			if end > bestEnd {
				bestEnd = end
				bestErrs = surplus
			}
			continue
		}
		if end > bestEnd {
			bestEnd = end
			bestErrs = errs
		}
	}
	if bestErrs == nil {
		bestErrs = []MatchError{{Code: "SYNTAX_ERROR", Message: "statement does not match any known form"}}
	}
	return ValidateResult{Valid: false, Errors: bestErrs}
}

// SuggestAt re-executes matching against tokens (assumed to be the complete
// tokens strictly before the cursor, per §4.2) and collects the first
// symbol(s) of the first position each alternative production runs out of
// input at. Contextual references are returned as-is so the suggestion
// engine can resolve them against the schema.
func SuggestAt(g *Grammar, entryRule string, tokens []Token) []Symbol {
	rule, ok := g.Rule(entryRule)
	if !ok {
		return nil
	}
	var out []Symbol
	seen := map[string]bool{}
	for _, prod := range rule.Productions {
		_, _, expected, hitEOF := suggestWalk(prod.Symbols, tokens, 0, g, map[string]bool{})
		if !hitEOF {
			continue
		}
		for _, s := range expected {
			key := symbolKey(s)
			if !seen[key] {
				seen[key] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// suggestWalk is matchProduction's suggestion-aware twin: instead of
// treating running out of tokens as a plain failure, it propagates the
// expected-next set from the exact position the input was exhausted,
// through reference and branches symbols, up to the caller. A symbol that
// mismatches on a token that IS present (not an EOF) is a genuine dead end
// for this alternative, the same way Validate drops a failed alternative.
func suggestWalk(symbols []Symbol, tokens []Token, index int, g *Grammar, visited map[string]bool) (end int, matched bool, expected []Symbol, hitEOF bool) {
	cur := index
	for i, sym := range symbols {
		if sym.Repeatable {
			matchedOnce := false
			for {
				e, m, exp, eof := matchSymbolSuggest(sym, tokens, cur, g, visited)
				if eof {
					after := expectedFirstSymbols(symbols[i+1:], g, visited)
					return cur, false, append(exp, after...), true
				}
				if !m || e == cur {
					break
				}
				cur = e
				matchedOnce = true
			}
			if !matchedOnce && !sym.Optional {
				return cur, false, nil, false
			}
			continue
		}

		e, m, exp, eof := matchSymbolSuggest(sym, tokens, cur, g, visited)
		if eof {
			return cur, false, exp, true
		}
		if m {
			cur = e
			continue
		}
		if sym.Optional {
			continue
		}
		return cur, false, nil, false
	}
	return cur, true, nil, false
}

// matchSymbolSuggest applies one non-repeated symbol, recursing into
// reference/branches via suggestWalk so an EOF several levels deep still
// surfaces to the top-level caller.
func matchSymbolSuggest(sym Symbol, tokens []Token, index int, g *Grammar, visited map[string]bool) (end int, matched bool, expected []Symbol, hitEOF bool) {
	switch sym.Kind {
	case SymbolToken, SymbolLiteral:
		if index >= len(tokens) {
			return index, false, []Symbol{sym}, true
		}
		if tokenMatches(sym, tokens[index]) {
			return index + 1, true, nil, false
		}
		return index, false, nil, false
	case SymbolReference:
		rule, ok := g.Rule(sym.Name)
		key := visitKey(sym.Name, index)
		if !ok || visited[key] || len(rule.Productions) == 0 {
			return index, false, nil, false
		}
		return suggestWalk(rule.Productions[0].Symbols, tokens, index, g, addVisited(visited, key))
	case SymbolBranches:
		bestEnd := index
		matchedAny := false
		var eofExpected []Symbol
		anyEOF := false
		for _, b := range sym.Branches {
			e, m, exp, eof := suggestWalk(b.Symbols, tokens, index, g, visited)
			if eof {
				anyEOF = true
				eofExpected = append(eofExpected, exp...)
				continue
			}
			if m && (!matchedAny || e > bestEnd) {
				matchedAny = true
				bestEnd = e
			}
		}
		if anyEOF {
			return index, false, eofExpected, true
		}
		if matchedAny {
			return bestEnd, true, nil, false
		}
		return index, false, nil, false
	}
	return index, false, nil, false
}

// firstLeaves returns the leaf (token/literal/contextual) symbols that can
// begin a match of sym, recursing through reference and branches symbols.
// visited guards against infinite recursion through self-referential rules.
func firstLeaves(sym Symbol, g *Grammar, visited map[string]bool) []Symbol {
	switch sym.Kind {
	case SymbolToken, SymbolLiteral:
		return []Symbol{sym}
	case SymbolReference:
		if visited[sym.Name] {
			return nil
		}
		rule, ok := g.Rule(sym.Name)
		if !ok || len(rule.Productions) == 0 {
			return nil
		}
		return expectedFirstSymbols(rule.Productions[0].Symbols, g, addVisited(visited, sym.Name))
	case SymbolBranches:
		var out []Symbol
		for _, b := range sym.Branches {
			out = append(out, expectedFirstSymbols(b.Symbols, g, visited)...)
		}
		return out
	}
	return nil
}

// expectedFirstSymbols returns the first-symbol set of a symbol sequence:
// the leaves of the first symbol, plus (when that symbol is optional or
// repeatable) the leaves of what follows it too, since matching could
// legally skip it.
func expectedFirstSymbols(symbols []Symbol, g *Grammar, visited map[string]bool) []Symbol {
	var out []Symbol
	for _, sym := range symbols {
		out = append(out, firstLeaves(sym, g, visited)...)
		if !sym.Optional && !sym.Repeatable {
			break
		}
	}
	return out
}

// visitKey identifies a reference(rule) application by rule name and input
// position, so suggestWalk's visited set blocks only a true zero-consume
// cycle (the same rule re-entered at the same index) and not a later,
// token-consuming re-entry into the same rule (e.g. a second WHERE clause
// via condition_tail -> condition).
func visitKey(name string, index int) string {
	return name + "@" + strconv.Itoa(index)
}

func symbolKey(s Symbol) string {
	switch s.Kind {
	case SymbolToken:
		return "token:" + s.Name
	case SymbolLiteral:
		return "literal:" + s.Text
	default:
		return string(s.Kind)
	}
}

// Dispatch maps the first significant token of a statement to the entry
// rule whose first production's first symbol matches it (§4.2). Entries
// are tried in the order the grammar file lists them; an empty token slice
// or no match returns ok=false so the caller can report UNKNOWN_STATEMENT.
func Dispatch(g *Grammar, tokens []Token) (string, bool) {
	if g == nil || len(tokens) == 0 {
		return "", false
	}
	first := tokens[0]
	for _, name := range g.Entries {
		rule, ok := g.Rule(name)
		if !ok || len(rule.Productions) == 0 || len(rule.Productions[0].Symbols) == 0 {
			continue
		}
		head := rule.Productions[0].Symbols[0]
		if head.Kind == SymbolBranches {
			for _, b := range head.Branches {
				if len(b.Symbols) > 0 && tokenMatches(b.Symbols[0], first) {
					return name, true
				}
			}
			continue
		}
		if tokenMatches(head, first) {
			return name, true
		}
	}
	return "", false
}

// Engine is the process-wide singleton holding one loaded Grammar per
// statement family. Reload atomically swaps the grammar map so in-flight
// matches finish against the grammar version they started with (§9).
type Engine struct {
	grammars atomic.Pointer[map[Family]*Grammar]
	mu       sync.Mutex
}

var singleton = &Engine{}

// Default returns the process-wide engine instance.
func Default() *Engine { return singleton }

// Load atomically installs a new family → grammar map, replacing whatever
// was previously loaded.
func (e *Engine) Load(grammars map[Family]*Grammar) {
	m := make(map[Family]*Grammar, len(grammars))
	for k, v := range grammars {
		m[k] = v
	}
	e.grammars.Store(&m)
}

// Grammar returns the currently loaded grammar for a family, or nil if none
// has been loaded.
func (e *Engine) Grammar(family Family) *Grammar {
	m := e.grammars.Load()
	if m == nil {
		return nil
	}
	return (*m)[family]
}
