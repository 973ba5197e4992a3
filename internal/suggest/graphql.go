package suggest

import (
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/schema"
)

const (
	gqlLBrace = grammar.TokenKind("{")
	gqlRBrace = grammar.TokenKind("}")
	gqlLParen = grammar.TokenKind("(")
	gqlRParen = grammar.TokenKind(")")
)

var graphqlOperationKeywords = []string{"query", "mutation", "subscription", "fragment"}

// suggestGraphQL has no JSON grammar to dispatch against — the grammar
// engine only covers DocQL's DDL/DML/DOL/Migration families — so it walks
// the complete-token prefix's brace/paren depth directly, the same
// bookkeeping internal/validate's checkSelectionSet uses, and resolves
// field candidates against the schema the way a GraphQL root Query type
// would if this schema model had one.
func suggestGraphQL(schemaCtx *schema.Context, complete []grammar.Token) []Suggestion {
	braceDepth, parenDepth := depths(complete)

	if braceDepth == 0 {
		var out []Suggestion
		for _, kw := range graphqlOperationKeywords {
			out = append(out, Suggestion{Label: kw, Kind: KindKeyword, InsertText: kw, Priority: priorityKeyword})
		}
		out = append(out, Suggestion{Label: "{", Kind: KindKeyword, InsertText: "{", Priority: priorityKeyword})
		out = append(out, graphqlSnippets()...)
		return out
	}

	if parenDepth > 0 {
		return nil // inside an argument list; no schema-backed completion yet
	}

	var out []Suggestion
	out = append(out, fieldSuggestionsAtDepth(schemaCtx, braceDepth)...)
	out = append(out, Suggestion{Label: "@", Kind: KindOperator, InsertText: "@", Detail: "directive", Priority: priorityOperator})
	out = append(out, Suggestion{Label: "...", Kind: KindOperator, InsertText: "...", Detail: "inline fragment", Priority: priorityOperator})
	return out
}

func depths(complete []grammar.Token) (braceDepth, parenDepth int) {
	for _, tok := range complete {
		switch tok.Kind {
		case gqlLBrace:
			braceDepth++
		case gqlRBrace:
			braceDepth--
		case gqlLParen:
			parenDepth++
		case gqlRParen:
			parenDepth--
		}
	}
	return braceDepth, parenDepth
}

// fieldSuggestionsAtDepth resolves root-selection-set candidates (the
// current database's bundle names) at depth 1, and a flattened field list
// across the current database at any deeper depth — a documented
// simplification, since this schema model has no per-bundle nested
// selection type to walk precisely.
func fieldSuggestionsAtDepth(schemaCtx *schema.Context, depth int) []Suggestion {
	if schemaCtx == nil {
		return nil
	}
	db := schemaCtx.CurrentDatabase()
	if db == "" {
		return nil
	}
	if depth == 1 {
		var out []Suggestion
		for _, bundle := range schemaCtx.GetAllBundles(db) {
			out = append(out, Suggestion{Label: bundle, Kind: KindField, Detail: "bundle " + bundle, InsertText: bundle, Priority: priorityField})
		}
		return out
	}
	var out []Suggestion
	seen := map[string]bool{}
	for _, bundle := range schemaCtx.GetAllBundles(db) {
		for _, field := range schemaCtx.GetAllFields(db, bundle) {
			if seen[field] {
				continue
			}
			seen[field] = true
			out = append(out, Suggestion{Label: field, Kind: KindField, Detail: "field of " + bundle, InsertText: field, Priority: priorityField})
		}
	}
	return out
}

func graphqlSnippets() []Suggestion {
	return []Suggestion{
		{
			Label: "query-skeleton", Kind: KindSnippet,
			InsertText: "query {\n\t${1:field}\n}",
			Detail:     "query skeleton", Priority: prioritySnippet,
		},
	}
}
