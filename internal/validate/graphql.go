package validate

import (
	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/schema"
)

const (
	gqlIllegal      = grammar.TokenKind("ILLEGAL")
	gqlLBrace       = grammar.TokenKind("{")
	gqlRBrace       = grammar.TokenKind("}")
	gqlLParen       = grammar.TokenKind("(")
	gqlRParen       = grammar.TokenKind(")")
	gqlLBracket     = grammar.TokenKind("[")
	gqlRBracket     = grammar.TokenKind("]")
	gqlAt           = grammar.TokenKind("@")
	gqlQuery        = grammar.TokenKind("query")
	gqlMutation     = grammar.TokenKind("mutation")
	gqlSubscription = grammar.TokenKind("subscription")
	gqlFragment     = grammar.TokenKind("fragment")
)

func isOperationKeyword(k grammar.TokenKind) bool {
	return k == gqlQuery || k == gqlMutation || k == gqlSubscription
}

// GraphQL runs the structural checks of §4.6 against one statement's
// significant tokens, then a schema-aware root-field check when schemaCtx
// is non-nil and a current database is set: a GraphQL root field maps to a
// bundle name in that database, the closest analogue this service's schema
// model has to a GraphQL root Query/Mutation type.
func GraphQL(schemaCtx *schema.Context, stmt *cache.Statement) (bool, []errs.Diagnostic) {
	list := errs.New()
	tokens := stmt.Tokens

	checkIllegalTokens(list, tokens, stmt)
	checkBalancedDelimiters(list, tokens, stmt)
	checkTopLevelStructure(list, tokens, stmt)

	if len(tokens) > 0 {
		rootFields := operationRootFields(tokens, schemaCtx)
		checkSelectionSet(list, tokens, stmt, rootFields)
	}

	return !list.HasErrors(), list.Items
}

func checkIllegalTokens(list *errs.List, tokens []grammar.Token, stmt *cache.Statement) {
	for _, tok := range tokens {
		if tok.Kind == gqlIllegal {
			list.Add(errs.Diagnostic{
				Code: errs.CodeIllegalCharacter, Message: "illegal character " + tok.Text,
				Severity: errs.SeverityError, StartOffset: tokenStart(tok, stmt), EndOffset: tokenEnd(tok, stmt),
				Category: errs.CategoryLex,
			})
		}
	}
}

// checkBalancedDelimiters is a stack-based check over {}, (), [] (§4.6 rule
// 2): a mismatched close reports UNBALANCED_DELIMITER, leftover opens at
// end of input report UNCLOSED_DELIMITER.
func checkBalancedDelimiters(list *errs.List, tokens []grammar.Token, stmt *cache.Statement) {
	var stack []grammar.Token
	opensFor := map[grammar.TokenKind]grammar.TokenKind{gqlRBrace: gqlLBrace, gqlRParen: gqlLParen, gqlRBracket: gqlLBracket}
	isOpen := map[grammar.TokenKind]bool{gqlLBrace: true, gqlLParen: true, gqlLBracket: true}

	for _, tok := range tokens {
		if isOpen[tok.Kind] {
			stack = append(stack, tok)
			continue
		}
		want, isClose := opensFor[tok.Kind]
		if !isClose {
			continue
		}
		if len(stack) == 0 || stack[len(stack)-1].Kind != want {
			list.Add(errs.Diagnostic{
				Code: errs.CodeUnbalancedDelimiter, Message: "unbalanced delimiter " + tok.Text,
				Severity: errs.SeverityError, StartOffset: tokenStart(tok, stmt), EndOffset: tokenEnd(tok, stmt),
				Category: errs.CategoryStructural,
			})
			continue
		}
		stack = stack[:len(stack)-1]
	}
	for _, open := range stack {
		list.Add(errs.Diagnostic{
			Code: errs.CodeUnclosedDelimiter, Message: "unclosed delimiter " + open.Text,
			Severity: errs.SeverityError, StartOffset: tokenStart(open, stmt), EndOffset: tokenEnd(open, stmt),
			Category: errs.CategoryStructural,
		})
	}
}

// checkTopLevelStructure enforces §4.6 rule 3: the statement's first token
// must be an operation keyword, "fragment", or a bare "{".
func checkTopLevelStructure(list *errs.List, tokens []grammar.Token, stmt *cache.Statement) {
	if len(tokens) == 0 {
		return
	}
	first := tokens[0]
	if isOperationKeyword(first.Kind) || first.Kind == gqlFragment || first.Kind == gqlLBrace {
		return
	}
	list.Add(errs.Diagnostic{
		Code: errs.CodeUnexpectedToken, Message: "unexpected token " + first.Text + " at top level",
		Severity: errs.SeverityError, StartOffset: tokenStart(first, stmt), EndOffset: tokenEnd(first, stmt),
		Category: errs.CategoryStructural,
	})
}

// checkSelectionSet enforces §4.6 rules 4-6: a required root selection set,
// non-empty at depth 1, and (when rootFields is non-nil) depth-1 field
// names checked against it.
func checkSelectionSet(list *errs.List, tokens []grammar.Token, stmt *cache.Statement, rootFields map[string]bool) {
	braceIdx := -1
	for i, tok := range tokens {
		if tok.Kind == gqlLBrace {
			braceIdx = i
			break
		}
	}
	if braceIdx < 0 {
		list.Add(errs.Diagnostic{
			Code: errs.CodeMissingSelectionSet, Message: "statement has no selection set",
			Severity: errs.SeverityError, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
			Category: errs.CategoryStructural,
		})
		return
	}

	braceDepth := 0
	parenDepth := 0
	fieldCount := 0
	for i := braceIdx; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case gqlLBrace:
			braceDepth++
		case gqlRBrace:
			braceDepth--
		case gqlLParen:
			parenDepth++
		case gqlRParen:
			parenDepth--
		default:
			if braceDepth == 1 && parenDepth == 0 && isFieldNameToken(tokens, i) {
				fieldCount++
				if rootFields != nil && !rootFields[tok.Text] {
					list.Add(errs.Diagnostic{
						Code: errs.CodeUnknownField, Message: "unknown root field " + tok.Text,
						Severity: errs.SeverityWarning, StartOffset: tokenStart(tok, stmt), EndOffset: tokenEnd(tok, stmt),
						Category: errs.CategoryReference,
					})
				}
			}
		}
	}
	if fieldCount == 0 {
		list.Add(errs.Diagnostic{
			Code: errs.CodeEmptySelectionSet, Message: "selection set has no fields",
			Severity: errs.SeverityError, StartOffset: stmt.OffsetStart, EndOffset: stmt.OffsetEnd,
			Category: errs.CategoryStructural,
		})
	}
}

// isFieldNameToken reports whether tokens[i] is the field name of a
// selection, as opposed to a directive name, a fragment spread, or an
// alias: a NAME not immediately preceded by "@" or "..." and not
// immediately followed by ":" (an alias names the field that follows the
// colon, not itself).
func isFieldNameToken(tokens []grammar.Token, i int) bool {
	tok := tokens[i]
	if tok.Kind != grammar.KindName {
		return false
	}
	if i > 0 {
		prev := tokens[i-1].Kind
		if prev == gqlAt || prev == grammar.TokenKind("...") {
			return false
		}
	}
	if i+1 < len(tokens) && tokens[i+1].Kind == grammar.TokenKind(":") {
		return false
	}
	return true
}

// operationRootFields resolves the known root field set for a statement's
// operation: the bundle names of schemaCtx's current database, or nil when
// no database context is set (schema-aware checking is then skipped
// entirely rather than flagging every field as unknown).
func operationRootFields(tokens []grammar.Token, schemaCtx *schema.Context) map[string]bool {
	if schemaCtx == nil {
		return nil
	}
	db := schemaCtx.CurrentDatabase()
	if db == "" {
		return nil
	}
	names := schemaCtx.GetAllBundles(db)
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
