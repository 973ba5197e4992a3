package suggest

import (
	"strings"

	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/schema"
)

var docqlFamilies = []grammar.Family{grammar.FamilyDDL, grammar.FamilyDML, grammar.FamilyDOL, grammar.FamilyMigration}

var docqlComparisonOperators = []string{"=", "==", "!=", "<", ">", "<=", ">="}

// suggestDocQL produces the raw (unranked, unfiltered) candidate set for a
// DocQL cursor position (§4.7 steps 3-6).
func suggestDocQL(ge *grammar.Engine, schemaCtx *schema.Context, complete []grammar.Token) []Suggestion {
	var out []Suggestion

	if len(complete) == 0 {
		out = append(out, rootKeywordSuggestions(ge)...)
		out = append(out, docqlSnippets()...)
		return out
	}

	family, ok := grammar.FamilyForLeadingToken(complete[0].Text)
	if !ok {
		return nil
	}
	g := ge.Grammar(family)
	if g == nil {
		return nil
	}
	entry, ok := grammar.Dispatch(g, complete)
	if !ok {
		return nil
	}

	expected := grammar.SuggestAt(g, entry, complete)
	if isLiteralValueOnly(expected) {
		return nil
	}

	for _, sym := range expected {
		out = append(out, suggestionsForSymbol(sym, schemaCtx, complete)...)
	}

	if inWhereClause(complete) {
		out = append(out, comparisonOperatorSuggestions()...)
	}

	return out
}

// isLiteralValueOnly reports §4.7 step 4: the expected-next set is exactly
// the generic value placeholder, so the user must type a value and no
// suggestion can help.
func isLiteralValueOnly(expected []grammar.Symbol) bool {
	return len(expected) == 1 && expected[0].Kind == grammar.SymbolToken && expected[0].Name == "literal"
}

func suggestionsForSymbol(sym grammar.Symbol, schemaCtx *schema.Context, complete []grammar.Token) []Suggestion {
	switch sym.Kind {
	case grammar.SymbolLiteral:
		return []Suggestion{{Label: sym.Text, Kind: KindKeyword, InsertText: sym.Text, Priority: priorityKeyword}}
	case grammar.SymbolToken:
		if sym.Name == "" {
			return nil
		}
		if !sym.IsContextual() {
			return []Suggestion{{Label: sym.Name, Kind: KindKeyword, InsertText: sym.Name, Priority: priorityKeyword}}
		}
		return contextualSuggestions(sym.Name, schemaCtx, complete)
	default:
		return nil
	}
}

// contextualSuggestions resolves a lower-case token(name) symbol against
// the schema context (§4.7 step 5). Names the schema has no data source
// for (users, arbitrary resources, value lists, migration bodies) get a
// single generic placeholder rather than nothing, so the completion menu
// never silently goes empty on a legitimate grammar position.
func contextualSuggestions(name string, schemaCtx *schema.Context, complete []grammar.Token) []Suggestion {
	if schemaCtx == nil {
		return []Suggestion{placeholderSuggestion(name)}
	}
	switch name {
	case "literal":
		// A lone literal value placeholder mixed in with other expected
		// symbols contributes nothing suggestible; only the all-literal
		// case (handled by isLiteralValueOnly before this is reached for
		// the single-symbol case) needs special handling, and for a
		// mixed set there is simply no suggestion to offer here.
		return nil
	case "database_reference":
		var out []Suggestion
		for _, db := range schemaCtx.GetAllDatabases() {
			out = append(out, Suggestion{Label: db, Kind: KindDatabase, InsertText: db, Priority: priorityDatabase})
		}
		return out
	case "bundle_reference":
		db := schemaCtx.CurrentDatabase()
		var names []string
		if db != "" {
			names = schemaCtx.GetAllBundles(db)
		} else {
			names = allBundlesAcrossDatabases(schemaCtx)
		}
		var out []Suggestion
		for _, n := range names {
			out = append(out, Suggestion{Label: n, Kind: KindBundle, InsertText: n, Priority: priorityBundle})
		}
		return out
	case "field_reference":
		db := schemaCtx.CurrentDatabase()
		bundle := nearestPrecedingBundle(complete)
		if db == "" || bundle == "" {
			return []Suggestion{placeholderSuggestion(name)}
		}
		var out []Suggestion
		for _, f := range schemaCtx.GetAllFields(db, bundle) {
			out = append(out, Suggestion{Label: f, Kind: KindField, InsertText: f, Priority: priorityField})
		}
		return out
	default:
		return []Suggestion{placeholderSuggestion(name)}
	}
}

func placeholderSuggestion(name string) Suggestion {
	return Suggestion{Label: "<" + name + ">", Kind: KindValue, InsertText: "", Priority: priorityPlaceholder}
}

func allBundlesAcrossDatabases(schemaCtx *schema.Context) []string {
	var out []string
	for _, db := range schemaCtx.GetAllDatabases() {
		out = append(out, schemaCtx.GetAllBundles(db)...)
	}
	return out
}

// nearestPrecedingBundle finds the bundle named by the closest preceding
// FROM/INTO token in the complete-token prefix (§4.7 step 5, mirroring
// internal/validate's field-reference resolution rule).
func nearestPrecedingBundle(complete []grammar.Token) string {
	bundle := ""
	for i, tok := range complete {
		upper := strings.ToUpper(tok.Text)
		if (upper == "FROM" || upper == "INTO") && i+1 < len(complete) {
			bundle = complete[i+1].Text
		}
	}
	return bundle
}

// inWhereClause reports whether the complete-token prefix currently sits
// inside an unterminated WHERE/SET clause (§4.7 step 6).
func inWhereClause(complete []grammar.Token) bool {
	in := false
	for _, tok := range complete {
		switch strings.ToUpper(tok.Text) {
		case "WHERE", "SET":
			in = true
		case ";", "ORDER", "GROUP", "LIMIT", "OFFSET":
			in = false
		}
	}
	return in
}

func comparisonOperatorSuggestions() []Suggestion {
	out := make([]Suggestion, 0, len(docqlComparisonOperators))
	for _, op := range docqlComparisonOperators {
		out = append(out, Suggestion{Label: op, Kind: KindOperator, InsertText: op, Priority: priorityOperator})
	}
	return out
}

// rootKeywordSuggestions collects every statement-leading literal keyword
// across all four grammar families, for the cursor-at-document-start case
// where no family has been dispatched yet.
func rootKeywordSuggestions(ge *grammar.Engine) []Suggestion {
	seen := map[string]bool{}
	var out []Suggestion
	for _, family := range docqlFamilies {
		g := ge.Grammar(family)
		if g == nil {
			continue
		}
		for _, entryName := range g.Entries {
			rule, ok := g.Rule(entryName)
			if !ok || len(rule.Productions) == 0 || len(rule.Productions[0].Symbols) == 0 {
				continue
			}
			head := rule.Productions[0].Symbols[0]
			if head.Kind != grammar.SymbolLiteral || seen[head.Text] {
				continue
			}
			seen[head.Text] = true
			out = append(out, Suggestion{Label: head.Text, Kind: KindKeyword, InsertText: head.Text, Priority: priorityKeyword})
		}
	}
	return out
}

func docqlSnippets() []Suggestion {
	return []Suggestion{
		{
			Label: "select-from-where", Kind: KindSnippet,
			InsertText: `SELECT * FROM "${1:bundle}" WHERE "${2:field}" == ${3:value};`,
			Detail:     "SELECT skeleton", Priority: prioritySnippet,
		},
		{
			Label: "create-bundle", Kind: KindSnippet,
			InsertText: `CREATE BUNDLE "${1:name}" (${2:field} TEXT);`,
			Detail:     "CREATE BUNDLE skeleton", Priority: prioritySnippet,
		},
	}
}
