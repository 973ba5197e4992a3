// Package docql implements the lexer for the SQL-like document-database
// language ("DocQL"). The scanning discipline keeps lexer and token concerns
// in separate files: a single lookahead character, line/column tracked on
// every advance, keyword folding via a lookup map, with the vocabulary
// covering DDL/DML/DOL/Migration statements (§4.1).
package docql

import "github.com/querycanvas/langservice/internal/shared"

// Kind is the closed set of DocQL token kinds.
type Kind string

const (
	ILLEGAL    Kind = "ILLEGAL"
	EOF        Kind = "EOF"
	WHITESPACE Kind = "WHITESPACE"
	NEWLINE    Kind = "NEWLINE"
	COMMENT    Kind = "COMMENT"

	IDENT  Kind = "IDENT"
	INT    Kind = "INT"
	FLOAT  Kind = "FLOAT"
	STRING Kind = "STRING"

	// Operators
	ASSIGN Kind = "="
	EQ     Kind = "=="
	NOT_EQ Kind = "!="
	LT     Kind = "<"
	GT     Kind = ">"
	LT_EQ  Kind = "<="
	GT_EQ  Kind = ">="
	PLUS   Kind = "+"
	MINUS  Kind = "-"
	STAR   Kind = "*"
	SLASH  Kind = "/"

	// Delimiters
	LPAREN    Kind = "("
	RPAREN    Kind = ")"
	LBRACE    Kind = "{"
	RBRACE    Kind = "}"
	LBRACKET  Kind = "["
	RBRACKET  Kind = "]"
	COMMA     Kind = ","
	SEMICOLON Kind = ";"
	DOT       Kind = "."
	COLON     Kind = ":"

	// Keywords — DDL/DML/DOL/Migration vocabulary plus structural words.
	CREATE     Kind = "CREATE"
	ALTER      Kind = "ALTER"
	DROP       Kind = "DROP"
	DATABASE   Kind = "DATABASE"
	BUNDLE     Kind = "BUNDLE"
	FIELD      Kind = "FIELD"
	INDEX      Kind = "INDEX"
	SELECT     Kind = "SELECT"
	INSERT     Kind = "INSERT"
	UPDATE     Kind = "UPDATE"
	DELETE     Kind = "DELETE"
	FROM       Kind = "FROM"
	INTO       Kind = "INTO"
	TO         Kind = "TO"
	WHERE      Kind = "WHERE"
	SET        Kind = "SET"
	VALUES     Kind = "VALUES"
	ORDER      Kind = "ORDER"
	GROUP      Kind = "GROUP"
	BY         Kind = "BY"
	LIMIT      Kind = "LIMIT"
	OFFSET     Kind = "OFFSET"
	GRANT      Kind = "GRANT"
	REVOKE     Kind = "REVOKE"
	USER       Kind = "USER"
	MIGRATION  Kind = "MIGRATION"
	APPLY      Kind = "APPLY"
	VALIDATE   Kind = "VALIDATE"
	ROLLBACK   Kind = "ROLLBACK"
	USE        Kind = "USE"
	AS         Kind = "AS"
	AND        Kind = "AND"
	OR         Kind = "OR"
	NOT        Kind = "NOT"
	NULL       Kind = "NULL"
	TRUE       Kind = "TRUE"
	FALSE      Kind = "FALSE"
	UNIQUE     Kind = "UNIQUE"
	NULLABLE   Kind = "NULLABLE"
	PRIMARY    Kind = "PRIMARY"
	DEFAULT    Kind = "DEFAULT"
	REFERENCES Kind = "REFERENCES"
	ON         Kind = "ON"
	DEPENDS    Kind = "DEPENDS"
)

var keywords = map[string]Kind{
	"create":     CREATE,
	"alter":      ALTER,
	"drop":       DROP,
	"database":   DATABASE,
	"bundle":     BUNDLE,
	"field":      FIELD,
	"index":      INDEX,
	"select":     SELECT,
	"insert":     INSERT,
	"update":     UPDATE,
	"delete":     DELETE,
	"from":       FROM,
	"into":       INTO,
	"to":         TO,
	"where":      WHERE,
	"set":        SET,
	"values":     VALUES,
	"order":      ORDER,
	"group":      GROUP,
	"by":         BY,
	"limit":      LIMIT,
	"offset":     OFFSET,
	"grant":      GRANT,
	"revoke":     REVOKE,
	"user":       USER,
	"migration":  MIGRATION,
	"apply":      APPLY,
	"validate":   VALIDATE,
	"rollback":   ROLLBACK,
	"use":        USE,
	"as":         AS,
	"and":        AND,
	"or":         OR,
	"not":        NOT,
	"null":       NULL,
	"true":       TRUE,
	"false":      FALSE,
	"unique":     UNIQUE,
	"nullable":   NULLABLE,
	"primary":    PRIMARY,
	"default":    DEFAULT,
	"references": REFERENCES,
	"on":         ON,
	"depends":    DEPENDS,
}

// LookupIdent case-insensitively folds an identifier into a keyword kind,
// or returns IDENT if it names none.
func LookupIdent(ident string) Kind {
	if k, ok := keywords[lower(ident)]; ok {
		return k
	}
	return IDENT
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Token is one scanned lexeme. Literal carries the decoded value for
// STRING (escapes applied) and numbers (left as text — the grammar/
// suggestion layers parse on demand); it is empty otherwise.
type Token struct {
	Kind    Kind
	Text    string
	Literal string
	Pos     shared.Position
}

// Category maps a DocQL token kind to the unified rendering bucket.
func (t Token) Category() shared.Category {
	switch {
	case t.Kind == IDENT:
		return shared.CategoryIdentifier
	case t.Kind == STRING:
		return shared.CategoryString
	case t.Kind == INT || t.Kind == FLOAT:
		return shared.CategoryNumber
	case t.Kind == COMMENT:
		return shared.CategoryComment
	case t.Kind == WHITESPACE:
		return shared.CategoryWhitespace
	case t.Kind == NEWLINE:
		return shared.CategoryNewline
	case t.Kind == ILLEGAL:
		return shared.CategoryUnknown
	case isOperatorKind(t.Kind):
		return shared.CategoryOperator
	case isPunctuationKind(t.Kind):
		return shared.CategoryPunctuation
	case isKeywordKind(t.Kind):
		return shared.CategoryKeyword
	default:
		return shared.CategoryUnknown
	}
}

func isOperatorKind(k Kind) bool {
	switch k {
	case ASSIGN, EQ, NOT_EQ, LT, GT, LT_EQ, GT_EQ, PLUS, MINUS, STAR, SLASH:
		return true
	}
	return false
}

func isPunctuationKind(k Kind) bool {
	switch k {
	case LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET, COMMA, SEMICOLON, DOT, COLON:
		return true
	}
	return false
}

func isKeywordKind(k Kind) bool {
	_, ok := keywordKindSet[k]
	return ok
}

var keywordKindSet = func() map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(keywords))
	for _, k := range keywords {
		m[k] = struct{}{}
	}
	return m
}()

// IsSignificant reports whether a token carries syntactic meaning, i.e. is
// not whitespace, a newline run, or a comment. Grammar matching, statement
// boundary detection, and validation all work over the significant subset;
// the raw stream (including insignificant tokens) is reserved for the
// rendering descriptor pipeline (§6).
func IsSignificant(k Kind) bool {
	switch k {
	case WHITESPACE, NEWLINE, COMMENT:
		return false
	}
	return true
}

// Significant filters a token slice down to its significant tokens.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if IsSignificant(t.Kind) {
			out = append(out, t)
		}
	}
	return out
}

// IsComparisonOrAssignment reports whether a token kind can follow a field
// reference inside WHERE/SET, used by the cross-statement validator (§4.6)
// to decide where a field reference ends.
func IsComparisonOrAssignment(k Kind) bool {
	switch k {
	case ASSIGN, EQ, NOT_EQ, LT, GT, LT_EQ, GT_EQ:
		return true
	}
	return false
}
