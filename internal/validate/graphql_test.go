package validate

import (
	"testing"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/graphql"
	"github.com/querycanvas/langservice/internal/schema"
	"github.com/querycanvas/langservice/internal/statementparser"
)

func TestGraphQLWellFormedQueryIsValid(t *testing.T) {
	stmts := statementparser.SplitGraphQL(`query { orders { id } }`, graphql.Tokenize(`query { orders { id } }`))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	valid, diags := GraphQL(nil, stmts[0])
	if !valid {
		t.Fatalf("expected valid, got %+v", diags)
	}
}

func TestGraphQLUnbalancedDelimiterReported(t *testing.T) {
	src := `query { orders { id }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	valid, diags := GraphQL(nil, stmts[0])
	if valid {
		t.Fatalf("expected invalid due to unclosed brace")
	}
	if !hasCode(diags, "UNCLOSED_DELIMITER") {
		t.Fatalf("expected UNCLOSED_DELIMITER, got %+v", diags)
	}
}

func TestGraphQLMissingSelectionSetReported(t *testing.T) {
	src := `query foo`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	_, diags := GraphQL(nil, stmts[0])
	if !hasCode(diags, "MISSING_SELECTION_SET") {
		t.Fatalf("expected MISSING_SELECTION_SET, got %+v", diags)
	}
}

func TestGraphQLEmptySelectionSetReported(t *testing.T) {
	src := `query { }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	_, diags := GraphQL(nil, stmts[0])
	if !hasCode(diags, "EMPTY_SELECTION_SET") {
		t.Fatalf("expected EMPTY_SELECTION_SET, got %+v", diags)
	}
}

// The splitter only ever starts a statement at a valid top-level keyword or
// a bare "{", so an invalid leading token never reaches GraphQL through
// normal splitting; this builds the statement by hand to exercise
// checkTopLevelStructure directly.
func TestGraphQLUnexpectedTopLevelTokenReported(t *testing.T) {
	tokens := []grammar.Token{
		{Kind: grammar.KindName, Text: "orders"},
		{Kind: gqlLBrace, Text: "{"},
		{Kind: grammar.KindName, Text: "id"},
		{Kind: gqlRBrace, Text: "}"},
	}
	stmt := cache.NewStatement("orders { id }", tokens, 1, 1, 0, len("orders { id }"))

	_, diags := GraphQL(nil, stmt)
	if !hasCode(diags, "UNEXPECTED_TOKEN") {
		t.Fatalf("expected UNEXPECTED_TOKEN, got %+v", diags)
	}
}

func TestGraphQLUnknownRootFieldWarnsAgainstSchema(t *testing.T) {
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name:    "shop",
		Bundles: map[string]*schema.Bundle{"orders": {Name: "orders", Database: "shop"}},
	})
	schemaCtx.SetCurrentDatabase("shop")

	src := `query { widgets { id } }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	_, diags := GraphQL(schemaCtx, stmts[0])
	if !hasCode(diags, "UNKNOWN_FIELD") {
		t.Fatalf("expected UNKNOWN_FIELD warning, got %+v", diags)
	}
}

func TestGraphQLArgumentNameNotMisreadAsField(t *testing.T) {
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name:    "shop",
		Bundles: map[string]*schema.Bundle{"orders": {Name: "orders", Database: "shop"}},
	})
	schemaCtx.SetCurrentDatabase("shop")

	src := `query { orders(limit: 10) { id } }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	valid, diags := GraphQL(schemaCtx, stmts[0])
	if !valid {
		t.Fatalf("expected valid, got %+v", diags)
	}
	if hasCode(diags, "UNKNOWN_FIELD") {
		t.Fatalf("argument name limit must not be flagged as an unknown root field: %+v", diags)
	}
}

func TestGraphQLAliasedRootFieldCheckedByItsRealName(t *testing.T) {
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name:    "shop",
		Bundles: map[string]*schema.Bundle{"orders": {Name: "orders", Database: "shop"}},
	})
	schemaCtx.SetCurrentDatabase("shop")

	src := `query { myOrders: orders { id } }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	valid, diags := GraphQL(schemaCtx, stmts[0])
	if !valid {
		t.Fatalf("expected valid, got %+v", diags)
	}
	if hasCode(diags, "UNKNOWN_FIELD") {
		t.Fatalf("alias myOrders must not itself be checked against root fields: %+v", diags)
	}
}

func TestGraphQLAliasedUnknownRootFieldWarns(t *testing.T) {
	schemaCtx := schema.New(schema.DefaultStalenessThreshold)
	schemaCtx.UpdateDatabase(schema.Database{
		Name:    "shop",
		Bundles: map[string]*schema.Bundle{"orders": {Name: "orders", Database: "shop"}},
	})
	schemaCtx.SetCurrentDatabase("shop")

	src := `query { myWidgets: widgets { id } }`
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	_, diags := GraphQL(schemaCtx, stmts[0])
	if !hasCode(diags, "UNKNOWN_FIELD") {
		t.Fatalf("expected UNKNOWN_FIELD warning naming the real field widgets, got %+v", diags)
	}
}

func TestGraphQLIllegalCharacterReported(t *testing.T) {
	src := "query { orders { ^ } }"
	stmts := statementparser.SplitGraphQL(src, graphql.Tokenize(src))
	if len(stmts) == 0 {
		t.Fatalf("expected a statement")
	}
	_, diags := GraphQL(nil, stmts[0])
	if !hasCode(diags, "ILLEGAL_CHARACTER") {
		t.Fatalf("expected ILLEGAL_CHARACTER, got %+v", diags)
	}
}
