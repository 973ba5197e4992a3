package grammar

import "strings"

// MatchError is one failure reported by the matcher. Token is nil when the
// failure is UNEXPECTED_EOF (ran out of tokens rather than mismatching one).
type MatchError struct {
	Code    string
	Message string
	Token   *Token
}

// MatchResult is the outcome of matching one rule or production against a
// token slice starting at some index.
type MatchResult struct {
	Matched  bool
	Consumed int // index just past the last consumed token
	Errors   []MatchError
}

// tokenMatches applies the symbol-matching table (§4.2) to one token.
func tokenMatches(sym Symbol, tok Token) bool {
	switch sym.Kind {
	case SymbolToken:
		if sym.IsContextual() {
			if sym.Name == "literal" {
				return isIdentifierLike(tok.Kind) || isLiteralLike(tok.Kind)
			}
			return isIdentifierLike(tok.Kind) || tok.Kind == KindString
		}
		return string(tok.Kind) == sym.Name || tok.Text == sym.Name
	case SymbolLiteral:
		return strings.EqualFold(tok.Text, sym.Text)
	}
	return false
}

// maxValidationDepth bounds reference(rule) recursion during validation
// (§9: "a bounded recursion depth in the validation path"). Real grammars
// nest a handful of levels deep; a chain this long only happens when a
// rule keeps re-entering itself without the loop terminating on its own.
const maxValidationDepth = 64

// MatchRule recurses into rule's first production only, per §3's definition
// of reference(rule). It is the entry point for a reference(r) symbol.
func MatchRule(rule Rule, tokens []Token, index int, g *Grammar, depth int) MatchResult {
	if len(rule.Productions) == 0 {
		return MatchResult{Matched: false, Consumed: index, Errors: []MatchError{
			{Code: "NO_MATCHING_RULE", Message: "rule " + rule.Name + " has no productions"},
		}}
	}
	end, ok, errs := matchProduction(rule.Productions[0].Symbols, tokens, index, g, depth)
	return MatchResult{Matched: ok, Consumed: end, Errors: errs}
}

// matchProduction walks a production's symbols in order, applying optional
// skip and greedy repeat semantics, and returns the index just past the
// last consumed token.
func matchProduction(symbols []Symbol, tokens []Token, index int, g *Grammar, depth int) (int, bool, []MatchError) {
	cur := index
	for _, sym := range symbols {
		matchedOnce := false
		for {
			res := matchOneSymbol(sym, tokens, cur, g, depth)
			if !res.Matched {
				if !matchedOnce && sym.Repeatable && sym.Optional {
					break
				}
				if !matchedOnce {
					if sym.Optional {
						break
					}
					return cur, false, res.Errors
				}
				break
			}
			if res.Consumed == cur {
				break // zero-consume match; stop to guarantee termination
			}
			cur = res.Consumed
			matchedOnce = true
			if !sym.Repeatable {
				break
			}
		}
	}
	return cur, true, nil
}

// matchOneSymbol matches a single application of sym (ignoring its
// Repeatable flag, which matchProduction applies externally).
func matchOneSymbol(sym Symbol, tokens []Token, index int, g *Grammar, depth int) MatchResult {
	switch sym.Kind {
	case SymbolToken, SymbolLiteral:
		if index >= len(tokens) {
			return MatchResult{Matched: false, Consumed: index, Errors: []MatchError{
				{Code: "UNEXPECTED_EOF", Message: "unexpected end of statement"},
			}}
		}
		tok := tokens[index]
		if tokenMatches(sym, tok) {
			return MatchResult{Matched: true, Consumed: index + 1}
		}
		t := tok
		return MatchResult{Matched: false, Consumed: index, Errors: []MatchError{
			{Code: "UNEXPECTED_TOKEN", Message: "unexpected token " + tok.Text, Token: &t},
		}}
	case SymbolReference:
		rule, ok := g.Rule(sym.Name)
		if !ok {
			return MatchResult{Matched: false, Consumed: index, Errors: []MatchError{
				{Code: "NO_MATCHING_RULE", Message: "undefined rule " + sym.Name},
			}}
		}
		if depth >= maxValidationDepth {
			return MatchResult{Matched: false, Consumed: index, Errors: []MatchError{
				{Code: "MAX_RECURSION_DEPTH", Message: "rule " + sym.Name + " recursed too deep"},
			}}
		}
		return MatchRule(rule, tokens, index, g, depth+1)
	case SymbolBranches:
		return matchBranches(sym.Branches, tokens, index, g, depth)
	}
	return MatchResult{Matched: false, Consumed: index}
}

// matchBranches evaluates every branch independently and selects the one
// consuming the most tokens; ties favor the first branch (§4.2).
func matchBranches(branches []Branch, tokens []Token, index int, g *Grammar, depth int) MatchResult {
	bestEnd := index
	bestMatched := false
	var bestErrs []MatchError
	for _, b := range branches {
		end, ok, errs := matchProduction(b.Symbols, tokens, index, g, depth)
		if ok && (!bestMatched || end > bestEnd) {
			bestMatched = true
			bestEnd = end
			bestErrs = nil
		}
		if !ok && !bestMatched && end > bestEnd {
			bestEnd = end
			bestErrs = errs
		}
	}
	if bestMatched {
		return MatchResult{Matched: true, Consumed: bestEnd}
	}
	if len(bestErrs) > 0 {
		return MatchResult{Matched: false, Consumed: bestEnd, Errors: bestErrs}
	}
	return MatchResult{Matched: false, Consumed: bestEnd, Errors: []MatchError{
		{Code: "NO_BRANCH_MATCH", Message: "no branch matched"},
	}}
}

func addVisited(visited map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(visited)+1)
	for k := range visited {
		out[k] = true
	}
	out[name] = true
	return out
}
