package grammar

import "github.com/querycanvas/langservice/internal/shared"

// TokenKind is the grammar-level view of a scanned token: either the
// language lexer's own upper-case kind name (e.g. "SELECT", "IDENT",
// "STRING", "INT") or the literal punctuation/operator text for symbols
// that are their own kind (e.g. "=", "("). Both lexers' Kind types already
// stringify this way, so the adapters in internal/statementparser and
// internal/service do a direct
// string conversion with no translation table.
type TokenKind string

const (
	KindIdent  TokenKind = "IDENT"
	KindName   TokenKind = "NAME"
	KindString TokenKind = "STRING"
	KindInt    TokenKind = "INT"
	KindFloat  TokenKind = "FLOAT"
	KindTrue   TokenKind = "TRUE"
	KindFalse  TokenKind = "FALSE"
	KindNull   TokenKind = "NULL"
)

// Token is the language-agnostic token the matcher walks. Adapters in
// internal/statementparser and internal/service build these from
// docql.Token / graphql.Token.
type Token struct {
	Kind TokenKind
	Text string
	Pos  shared.Position
}

// isIdentifierLike reports whether a token kind counts as a bare name for
// contextual-reference purposes (DocQL IDENT, GraphQL NAME share the role).
func isIdentifierLike(k TokenKind) bool {
	return k == KindIdent || k == KindName
}

func isLiteralLike(k TokenKind) bool {
	switch k {
	case KindString, KindInt, KindFloat, KindTrue, KindFalse, KindNull:
		return true
	}
	return false
}
