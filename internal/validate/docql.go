// Package validate runs grammar and cross-statement validation for both
// languages over an already-split cache.Statement (§4.6). Grammar.Token,
// cache.Statement.Tokens, is the common currency: both splitters already
// adapt the raw lexer output into it, so no further per-language adapter is
// needed here.
package validate

import (
	"strings"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/schema"
)

// referenceKind is the closed set of cross-statement reference shapes a
// DocQL statement's tokens can carry (§4.6 rule 1).
type referenceKind int

const (
	refDatabase referenceKind = iota
	refBundle
	refUser
	refMigration
	refField
)

type reference struct {
	kind  referenceKind
	name  string
	token grammar.Token
}

// DocQL runs grammar validation (via engine) followed by cross-statement
// reference validation against schemaCtx, and returns the combined outcome
// (§4.6). currentDatabase overrides schemaCtx's own current_database when
// non-empty, matching the per-document override described in §3's Document
// State.
func DocQL(engine *grammar.Engine, schemaCtx *schema.Context, stmt *cache.Statement, currentDatabase string) (bool, []errs.Diagnostic) {
	list := errs.New()
	tokens := stmt.Tokens

	if len(tokens) == 0 {
		list.Add(errs.Diagnostic{
			Code: errs.CodeEmptyStatement, Message: "statement has no tokens",
			Severity: errs.SeverityError, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
			Category: errs.CategoryGrammar,
		})
		return false, list.Items
	}

	family, ok := grammar.FamilyForLeadingToken(tokens[0].Text)
	if !ok {
		list.Add(errs.Diagnostic{
			Code: errs.CodeUnknownStatement, Message: "unknown statement keyword " + tokens[0].Text,
			Severity: errs.SeverityError, StartOffset: tokenStart(tokens[0], stmt), EndOffset: tokenEnd(tokens[0], stmt),
			Category: errs.CategoryGrammar,
		})
		return false, list.Items
	}

	g := engine.Grammar(family)
	entry, ok := grammar.Dispatch(g, tokens)
	if !ok {
		list.Add(errs.Diagnostic{
			Code: errs.CodeNoMatchingRule, Message: "no grammar rule matches this statement",
			Severity: errs.SeverityError, StartOffset: tokenStart(tokens[0], stmt), EndOffset: tokenEnd(tokens[0], stmt),
			Category: errs.CategoryGrammar,
		})
		return false, list.Items
	}

	result := grammar.Validate(g, entry, tokens)
	if !result.Valid {
		for _, e := range result.Errors {
			d := errs.Diagnostic{Code: e.Code, Message: e.Message, Severity: errs.SeverityError, Category: errs.CategoryGrammar}
			if e.Token != nil {
				d.StartOffset = tokenStart(*e.Token, stmt)
				d.EndOffset = tokenEnd(*e.Token, stmt)
			} else {
				d.StartOffset, d.EndOffset = stmt.OffsetStart, stmt.OffsetEnd
			}
			list.Add(d)
		}
	}

	crossStatementChecks(list, schemaCtx, stmt, tokens, currentDatabase)

	return !list.HasErrors(), list.Items
}

func tokenStart(tok grammar.Token, stmt *cache.Statement) int {
	if tok.Pos.StartOffset == 0 && tok.Pos.EndOffset == 0 {
		return stmt.OffsetStart
	}
	return tok.Pos.StartOffset
}

func tokenEnd(tok grammar.Token, stmt *cache.Statement) int {
	if tok.Pos.StartOffset == 0 && tok.Pos.EndOffset == 0 {
		return stmt.OffsetEnd
	}
	return tok.Pos.EndOffset
}

// crossStatementChecks extracts references per §4.6 rule 1, resolves each
// against schemaCtx, and appends the corresponding diagnostics, plus the
// blanket staleness/create/drop checks from rule 3.
func crossStatementChecks(list *errs.List, schemaCtx *schema.Context, stmt *cache.Statement, tokens []grammar.Token, currentDatabase string) {
	db := currentDatabase
	if db == "" {
		db = schemaCtx.CurrentDatabase()
	}

	leading := strings.ToUpper(tokens[0].Text)
	createName, createKind, createTok, isCreate := createTarget(tokens)
	isCreate = isCreate && leading == "CREATE"

	for _, ref := range extractReferences(tokens) {
		if isCreate && ref.kind == createKind && ref.name == createName && ref.token.Pos.StartOffset == createTok.Pos.StartOffset {
			// The declared target of a CREATE is not a reference to an
			// existing entity; it's checked for DUPLICATE_* below instead.
			continue
		}
		switch ref.kind {
		case refDatabase:
			if !schemaCtx.HasDatabase(ref.name) {
				list.Add(notFoundDiagnostic(errs.CodeDatabaseNotFound, "database", ref.name, ref.token, stmt))
			}
		case refBundle:
			if db == "" {
				list.Add(errs.Diagnostic{
					Code: errs.CodeNoDatabaseContext, Message: "bundle reference " + ref.name + " has no current database",
					Severity: errs.SeverityWarning, StartOffset: tokenStart(ref.token, stmt), EndOffset: tokenEnd(ref.token, stmt),
					Category: errs.CategoryReference,
				})
			} else if !schemaCtx.HasBundle(db, ref.name) {
				list.Add(notFoundDiagnostic(errs.CodeBundleNotFound, "bundle", ref.name, ref.token, stmt))
			}
		case refField:
			if db != "" {
				bundle := nearestPrecedingBundle(tokens, ref.token)
				if bundle != "" && schemaCtx.HasBundle(db, bundle) && !schemaCtx.HasField(db, bundle, ref.name) {
					list.Add(notFoundDiagnostic(errs.CodeFieldNotFound, "field", ref.name, ref.token, stmt))
				}
			}
		case refMigration:
			if _, ok := schemaCtx.GetMigration(ref.name); !ok {
				list.Add(errs.Diagnostic{
					Code: errs.CodeMigrationDepMissing, Message: "migration " + ref.name + " not found",
					Severity: errs.SeverityError, StartOffset: tokenStart(ref.token, stmt), EndOffset: tokenEnd(ref.token, stmt),
					Category: errs.CategoryMigration,
				})
			} else if schemaCtx.HasCircularDependency(ref.name) {
				list.Add(errs.Diagnostic{
					Code: errs.CodeMigrationCircularDep, Message: "migration " + ref.name + " has a circular dependency",
					Severity: errs.SeverityError, StartOffset: tokenStart(ref.token, stmt), EndOffset: tokenEnd(ref.token, stmt),
					Category: errs.CategoryMigration,
				})
			}
		case refUser:
			// User references are not tracked in the schema graph beyond
			// permissions; nothing to look up yet.
		}
	}

	if schemaCtx.State() == schema.StateStale {
		list.Add(errs.Diagnostic{
			Code: errs.CodeContextStale, Message: "schema context is stale",
			Severity: errs.SeverityWarning, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
			Category: errs.CategoryReference,
		})
	}

	switch leading {
	case "CREATE":
		if isCreate {
			switch createKind {
			case refDatabase:
				if schemaCtx.HasDatabase(createName) {
					list.Add(errs.Diagnostic{
						Code: errs.CodeDuplicateDatabase, Message: "database " + createName + " already exists",
						Severity: errs.SeverityError, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
						Category: errs.CategoryReference,
					})
				}
			case refBundle:
				if db != "" && schemaCtx.HasBundle(db, createName) {
					list.Add(errs.Diagnostic{
						Code: errs.CodeDuplicateBundle, Message: "bundle " + createName + " already exists",
						Severity: errs.SeverityError, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
						Category: errs.CategoryReference,
					})
				}
			}
		}
	case "DROP":
		list.Add(errs.Diagnostic{
			Code: errs.CodeDestructiveOperation, Message: "DROP is a destructive operation",
			Severity: errs.SeverityWarning, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
			Category: errs.CategoryReference,
		})
	}
}

func notFoundDiagnostic(code, kind, name string, tok grammar.Token, stmt *cache.Statement) errs.Diagnostic {
	return errs.Diagnostic{
		Code: code, Message: kind + " " + name + " not found",
		Severity: errs.SeverityError, StartOffset: tokenStart(tok, stmt), EndOffset: tokenEnd(tok, stmt),
		Category: errs.CategoryReference,
	}
}

// createTarget reports the name, kind, and naming token of the entity a
// CREATE statement declares. Its caller uses this both for the
// DUPLICATE_DATABASE/DUPLICATE_BUNDLE check and to exempt the declared
// target itself from the NOT_FOUND reference check: a CREATE's target is
// expected not to exist yet, not a reference to something that should.
func createTarget(tokens []grammar.Token) (name string, kind referenceKind, tok grammar.Token, ok bool) {
	for i := 1; i+1 < len(tokens); i++ {
		switch strings.ToUpper(tokens[i].Text) {
		case "DATABASE":
			return tokens[i+1].Text, refDatabase, tokens[i+1], true
		case "BUNDLE":
			return tokens[i+1].Text, refBundle, tokens[i+1], true
		}
	}
	return "", 0, grammar.Token{}, false
}

// extractReferences walks tokens applying §4.6 rule 1 verbatim:
//   - after DATABASE|BUNDLE|USER|MIGRATION -> named reference of that kind.
//   - after FROM|TO|INTO -> bundle reference.
//   - inside WHERE/SET, a bare identifier immediately followed by a
//     comparison/assignment operator is a field reference, terminated by
//     ;|ORDER|GROUP|LIMIT|OFFSET.
func extractReferences(tokens []grammar.Token) []reference {
	var refs []reference
	inClause := false
	for i, tok := range tokens {
		upper := strings.ToUpper(tok.Text)
		switch upper {
		case "DATABASE", "BUNDLE", "USER", "MIGRATION":
			if i+1 < len(tokens) {
				refs = append(refs, reference{kind: keywordReferenceKind(upper), name: tokens[i+1].Text, token: tokens[i+1]})
			}
			continue
		case "FROM", "TO", "INTO":
			if i+1 < len(tokens) {
				refs = append(refs, reference{kind: refBundle, name: tokens[i+1].Text, token: tokens[i+1]})
			}
			continue
		case "WHERE", "SET":
			inClause = true
			continue
		case ";", "ORDER", "GROUP", "LIMIT", "OFFSET":
			inClause = false
			continue
		}
		if inClause && i+1 < len(tokens) && isIdentifierToken(tok) && isComparisonOrAssignment(tokens[i+1]) {
			refs = append(refs, reference{kind: refField, name: tok.Text, token: tok})
		}
	}
	return refs
}

func keywordReferenceKind(upper string) referenceKind {
	switch upper {
	case "DATABASE":
		return refDatabase
	case "BUNDLE":
		return refBundle
	case "USER":
		return refUser
	case "MIGRATION":
		return refMigration
	}
	return refDatabase
}

func isIdentifierToken(tok grammar.Token) bool {
	return tok.Kind == grammar.KindIdent || tok.Kind == grammar.KindName
}

var comparisonOperators = map[string]bool{
	"=": true, "==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

func isComparisonOrAssignment(tok grammar.Token) bool {
	return comparisonOperators[tok.Text]
}

// nearestPrecedingBundle finds the bundle named by the closest preceding
// FROM/INTO token before target, per §4.6 rule 1's "field reference bound
// to the bundle named in the nearest preceding FROM/INTO token".
func nearestPrecedingBundle(tokens []grammar.Token, target grammar.Token) string {
	bundle := ""
	for i, tok := range tokens {
		if tok.Pos.StartOffset == target.Pos.StartOffset {
			break
		}
		upper := strings.ToUpper(tok.Text)
		if (upper == "FROM" || upper == "INTO") && i+1 < len(tokens) {
			bundle = tokens[i+1].Text
		}
	}
	return bundle
}
