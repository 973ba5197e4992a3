package suggest

import (
	"testing"

	"github.com/querycanvas/langservice/internal/docql"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/graphql"
	"github.com/querycanvas/langservice/internal/schema"
	"github.com/querycanvas/langservice/internal/statementparser"
)

func testGrammarEngine(t *testing.T) *grammar.Engine {
	t.Helper()
	e := &grammar.Engine{}
	grammars := make(map[grammar.Family]*grammar.Grammar)
	for _, family := range []grammar.Family{grammar.FamilyDDL, grammar.FamilyDML, grammar.FamilyDOL, grammar.FamilyMigration} {
		g, err := grammar.LoadFamily(family)
		if err != nil {
			t.Fatalf("LoadFamily(%s): %v", family, err)
		}
		grammars[family] = g
	}
	e.Load(grammars)
	return e
}

func docqlTokens(t *testing.T, src string) []grammar.Token {
	t.Helper()
	stmts := statementparser.SplitDocQL(src, docql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement from %q", src)
	}
	return stmts[0].Tokens
}

func labels(suggestions []Suggestion) map[string]bool {
	out := make(map[string]bool, len(suggestions))
	for _, s := range suggestions {
		out[s.Label] = true
	}
	return out
}

func TestSuggestDocQLAtDocumentStartOffersEntryKeywords(t *testing.T) {
	ge := testGrammarEngine(t)
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	out := e.Suggest(ge, nil, LanguageDocQL, nil, "", 0)
	got := labels(out)
	for _, want := range []string{"SELECT", "CREATE", "GRANT"} {
		if !got[want] {
			t.Fatalf("expected %s among start-of-document suggestions, got %+v", want, got)
		}
	}
}

func TestSuggestDocQLAfterFromOffersBundleNames(t *testing.T) {
	ge := testGrammarEngine(t)
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name: "shop",
		Bundles: map[string]*schema.Bundle{
			"orders": {Name: "orders", Database: "shop"},
		},
	})
	schemaCtx.SetCurrentDatabase("shop")
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	text := `SELECT * FROM `
	tokens := docqlTokens(t, text)
	out := e.Suggest(ge, schemaCtx, LanguageDocQL, tokens, text, len(text))
	got := labels(out)
	if !got["orders"] {
		t.Fatalf("expected bundle suggestion 'orders', got %+v", got)
	}
}

func TestSuggestDocQLSuppressedOnLiteralOnly(t *testing.T) {
	ge := testGrammarEngine(t)
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	text := `SELECT * FROM "orders" WHERE "email" == `
	tokens := docqlTokens(t, text)
	out := e.Suggest(ge, nil, LanguageDocQL, tokens, text, len(text))
	if len(out) != 0 {
		t.Fatalf("expected no suggestions when only a literal value is expected, got %+v", out)
	}
}

func TestSuggestDocQLPartialWordFiltersCandidates(t *testing.T) {
	ge := testGrammarEngine(t)
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	text := "SEL"
	out := e.Suggest(ge, nil, LanguageDocQL, nil, text, len(text))
	got := labels(out)
	if !got["SELECT"] {
		t.Fatalf("expected SELECT to survive the 'SEL' prefix filter, got %+v", got)
	}
	if got["GRANT"] {
		t.Fatalf("expected GRANT to be filtered out by the 'SEL' partial word, got %+v", got)
	}
}

func TestSuggestDocQLOperatorsInsideWhereClause(t *testing.T) {
	ge := testGrammarEngine(t)
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name: "shop",
		Bundles: map[string]*schema.Bundle{
			"orders": {Name: "orders", Database: "shop", Fields: map[string]*schema.Field{"status": {Name: "status"}}},
		},
	})
	schemaCtx.SetCurrentDatabase("shop")
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	text := `SELECT * FROM "orders" WHERE "status" `
	tokens := docqlTokens(t, text)
	out := e.Suggest(ge, schemaCtx, LanguageDocQL, tokens, text, len(text))
	got := labels(out)
	if !got["=="] {
		t.Fatalf("expected comparison operator suggestions inside WHERE, got %+v", got)
	}
}

func TestSuggestGraphQLAtDocumentStartOffersOperationKeywords(t *testing.T) {
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)
	out := e.Suggest(nil, nil, LanguageGraphQL, nil, "", 0)
	got := labels(out)
	for _, want := range []string{"query", "mutation", "fragment"} {
		if !got[want] {
			t.Fatalf("expected %s among GraphQL start suggestions, got %+v", want, got)
		}
	}
}

func TestSuggestGraphQLRootSelectionOffersBundleNames(t *testing.T) {
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name:    "shop",
		Bundles: map[string]*schema.Bundle{"orders": {Name: "orders", Database: "shop"}},
	})
	schemaCtx.SetCurrentDatabase("shop")
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	text := `query { `
	tokens := statementparser.SplitGraphQL(text, graphql.Tokenize(text))[0].Tokens
	out := e.Suggest(nil, schemaCtx, LanguageGraphQL, tokens, text, len(text))
	got := labels(out)
	if !got["orders"] {
		t.Fatalf("expected root field suggestion 'orders', got %+v", got)
	}
	if !got["@"] || !got["..."] {
		t.Fatalf("expected directive and spread operator suggestions, got %+v", got)
	}
}

func TestRecordUsageBoostsRanking(t *testing.T) {
	ge := testGrammarEngine(t)
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	for i := 0; i < 20; i++ {
		e.RecordUsage("GRANT")
	}

	out := e.Suggest(ge, nil, LanguageDocQL, nil, "", 0)
	if len(out) == 0 {
		t.Fatalf("expected suggestions")
	}
	if out[0].Label != "GRANT" {
		t.Fatalf("expected heavily-used GRANT to rank first, got %+v", out[0])
	}
}

func TestMemoizationReturnsCachedListOnIdenticalPosition(t *testing.T) {
	ge := testGrammarEngine(t)
	e := NewEngine(DefaultMemoTTL, DefaultMemoCacheSize)

	first := e.Suggest(ge, nil, LanguageDocQL, nil, "", 0)
	second := e.Suggest(ge, nil, LanguageDocQL, nil, "", 0)
	if len(first) != len(second) {
		t.Fatalf("expected memoized call to return the same list, got %d vs %d", len(first), len(second))
	}
}
