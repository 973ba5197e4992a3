// Package statementparser splits a document's full token stream into
// boundary-delimited Statement values (§4.4), one splitter per language,
// plus the debounced per-document validation queue that sits on top of
// them.
package statementparser

import (
	"strings"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/docql"
	"github.com/querycanvas/langservice/internal/grammar"
)

// SplitDocQL breaks a DocQL document into statements at every semicolon.
// Whitespace, comments, and newlines are skipped when *detecting* a
// boundary but remain part of the statement's text slice, since text is
// always recovered by slicing the original source rather than rejoining
// token text (§9 design note). tokens must include insignificant kinds (the
// full stream Tokenize produces); text is the original source the tokens
// were scanned from.
func SplitDocQL(text string, tokens []docql.Token) []*cache.Statement {
	var out []*cache.Statement
	start := -1
	lineStart := 1

	flush := func(endOffset, endLine int) {
		if start < 0 {
			return
		}
		slice := text[start:endOffset]
		if strings.TrimSpace(slice) != "" {
			out = append(out, cache.NewStatement(slice, docqlSignificantSlice(tokens, start, endOffset), lineStart, endLine, start, endOffset))
		}
		start = -1
	}

	for _, tok := range tokens {
		if tok.Kind == docql.EOF {
			continue
		}
		if start < 0 && !isDocQLBoundaryOnly(tok.Kind) {
			start = tok.Pos.StartOffset
			lineStart = tok.Pos.Line
		}
		if tok.Kind == docql.SEMICOLON {
			flush(tok.Pos.EndOffset, tok.Pos.Line)
		}
	}
	// Unterminated trailing statement (no semicolon before end-of-input).
	if start >= 0 {
		flush(len(text), lastLine(tokens))
	}
	return out
}

// isDocQLBoundaryOnly reports whether a token kind never itself starts the
// meaningful content of a statement (it may still be skipped over once a
// statement has started).
func isDocQLBoundaryOnly(k docql.Kind) bool {
	switch k {
	case docql.WHITESPACE, docql.NEWLINE, docql.COMMENT:
		return true
	}
	return false
}

func lastLine(tokens []docql.Token) int {
	line := 1
	for _, tok := range tokens {
		if tok.Pos.Line > line {
			line = tok.Pos.Line
		}
	}
	return line
}

// docqlSignificantSlice adapts the significant tokens falling within
// [start,end) into grammar.Token, the shape the grammar engine and
// validators consume.
func docqlSignificantSlice(tokens []docql.Token, start, end int) []grammar.Token {
	var out []grammar.Token
	for _, tok := range tokens {
		if tok.Kind == docql.EOF || isDocQLBoundaryOnly(tok.Kind) {
			continue
		}
		if tok.Pos.StartOffset < start || tok.Pos.StartOffset >= end {
			continue
		}
		out = append(out, grammar.Token{Kind: grammar.TokenKind(tok.Kind), Text: tok.Text, Pos: tok.Pos})
	}
	return out
}
