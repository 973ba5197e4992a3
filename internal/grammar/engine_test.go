package grammar

import (
	"testing"

	"github.com/querycanvas/langservice/internal/docql"
)

// toGrammarTokens adapts docql significant tokens to grammar.Token, the
// same conversion internal/statementparser performs.
func toGrammarTokens(toks []docql.Token) []Token {
	out := make([]Token, len(toks))
	for i, t := range toks {
		out[i] = Token{Kind: TokenKind(t.Kind), Text: t.Text, Pos: t.Pos}
	}
	return out
}

func mustLoad(t *testing.T, family Family) *Grammar {
	t.Helper()
	g, err := LoadFamily(family)
	if err != nil {
		t.Fatalf("LoadFamily(%s): %v", family, err)
	}
	return g
}

func dispatchAndValidate(t *testing.T, input string) ValidateResult {
	t.Helper()
	toks := docql.Significant(docql.Tokenize(input))
	// Drop the synthetic EOF token; the grammar's productions end on ';'.
	if len(toks) > 0 && toks[len(toks)-1].Kind == docql.EOF {
		toks = toks[:len(toks)-1]
	}
	gtoks := toGrammarTokens(toks)
	family, ok := FamilyForLeadingToken(string(toks[0].Kind))
	if !ok {
		t.Fatalf("no family for leading token %q", toks[0].Text)
	}
	g := mustLoad(t, family)
	entry, ok := Dispatch(g, gtoks)
	if !ok {
		t.Fatalf("no dispatch entry matched for input %q", input)
	}
	return Validate(g, entry, gtoks)
}

func TestSelectWithLimitIsValid(t *testing.T) {
	res := dispatchAndValidate(t, `SELECT * from "orders" LIMIT 10;`)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %+v", res.Errors)
	}
}

func TestCreateDatabaseMissingIdentIsInvalid(t *testing.T) {
	res := dispatchAndValidate(t, "CREATE DATABASE;")
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
	code := res.Errors[0].Code
	if code != "UNEXPECTED_TOKEN" && code != "UNEXPECTED_EOF" {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestUpdateStatementIsValid(t *testing.T) {
	res := dispatchAndValidate(t, `UPDATE "users" SET "name" = "bob" WHERE "id" == 1;`)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %+v", res.Errors)
	}
}

func TestInsertStatementIsValid(t *testing.T) {
	res := dispatchAndValidate(t, `INSERT INTO "users" VALUES ("bob", 42, true);`)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %+v", res.Errors)
	}
}

// TestChainedWhereConditionsAreValid exercises condition re-entering itself
// via condition_tail for a second clause after real tokens have already been
// consumed, the case the bounded validation-recursion depth must allow.
func TestChainedWhereConditionsAreValid(t *testing.T) {
	res := dispatchAndValidate(t, `SELECT * FROM "orders" WHERE "a" = 1 AND "b" = 2 OR "c" = 3;`)
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %+v", res.Errors)
	}
}

func TestSuggestAtSuppressesOnLiteralOnly(t *testing.T) {
	g := mustLoad(t, FamilyDML)
	toks := docql.Significant(docql.Tokenize(`SELECT * FROM "users" WHERE "email" == `))
	if toks[len(toks)-1].Kind == docql.EOF {
		toks = toks[:len(toks)-1]
	}
	gtoks := toGrammarTokens(toks)
	expected := SuggestAt(g, "select_statement", gtoks)
	if len(expected) != 1 || expected[0].Name != "literal" {
		t.Fatalf("expected exactly {literal}, got %+v", expected)
	}
}

// TestSuggestAtChainedWhereConditionOffersFieldReference is SuggestAt's
// counterpart to TestChainedWhereConditionsAreValid: a second WHERE clause
// re-enters condition via condition_tail after the first clause's tokens
// are consumed, which must still reach EOF and offer field_reference, not
// be blocked as if it were a zero-consume cycle back into the same rule.
func TestSuggestAtChainedWhereConditionOffersFieldReference(t *testing.T) {
	g := mustLoad(t, FamilyDML)
	toks := docql.Significant(docql.Tokenize(`SELECT * FROM "orders" WHERE "a" = 1 AND `))
	if toks[len(toks)-1].Kind == docql.EOF {
		toks = toks[:len(toks)-1]
	}
	gtoks := toGrammarTokens(toks)
	expected := SuggestAt(g, "select_statement", gtoks)
	found := false
	for _, s := range expected {
		if s.Name == "field_reference" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected field_reference in expected-next set for a second WHERE condition, got %+v", expected)
	}
}

func TestSuggestAtBundleContext(t *testing.T) {
	g := mustLoad(t, FamilyDML)
	toks := docql.Significant(docql.Tokenize(`SELECT * FROM `))
	if toks[len(toks)-1].Kind == docql.EOF {
		toks = toks[:len(toks)-1]
	}
	gtoks := toGrammarTokens(toks)
	expected := SuggestAt(g, "select_statement", gtoks)
	found := false
	for _, s := range expected {
		if s.Name == "bundle_reference" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bundle_reference in expected-next set, got %+v", expected)
	}
}
