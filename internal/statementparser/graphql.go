package statementparser

import (
	"strings"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/graphql"
)

// SplitGraphQL breaks a GraphQL document into statements at top-level
// operation/fragment boundaries: a statement starts at a top-level
// query|mutation|subscription|fragment keyword or a bare `{` (shorthand
// query) and ends at the matching `}` of its root selection set, tracked by
// brace depth over significant tokens only (§4.4).
func SplitGraphQL(text string, tokens []graphql.Token) []*cache.Statement {
	sig := graphql.Significant(tokens)

	var out []*cache.Statement
	depth := 0
	start := -1
	lineStart := 1

	flush := func(endOffset, endLine int, members []graphql.Token) {
		if start < 0 {
			return
		}
		slice := text[start:endOffset]
		if strings.TrimSpace(slice) != "" {
			out = append(out, cache.NewStatement(slice, toGraphQLGrammarTokens(members), lineStart, endLine, start, endOffset))
		}
		start = -1
	}

	var pending []graphql.Token
	for _, tok := range sig {
		if tok.Kind == graphql.EOF {
			continue
		}
		if depth == 0 && start < 0 && startsGraphQLStatement(tok.Kind) {
			start = tok.Pos.StartOffset
			lineStart = tok.Pos.Line
			pending = pending[:0]
		}
		if start < 0 {
			continue
		}
		pending = append(pending, tok)
		switch tok.Kind {
		case graphql.LBRACE:
			depth++
		case graphql.RBRACE:
			depth--
			if depth == 0 {
				flush(tok.Pos.EndOffset, tok.Pos.Line, pending)
			}
		}
	}
	if start >= 0 {
		flush(len(text), lastGraphQLLine(sig), pending)
	}
	return out
}

func startsGraphQLStatement(k graphql.Kind) bool {
	switch k {
	case graphql.QUERY, graphql.MUTATION, graphql.SUBSCRIPTION, graphql.FRAGMENT, graphql.LBRACE:
		return true
	}
	return false
}

func lastGraphQLLine(tokens []graphql.Token) int {
	line := 1
	for _, tok := range tokens {
		if tok.Pos.Line > line {
			line = tok.Pos.Line
		}
	}
	return line
}

func toGraphQLGrammarTokens(tokens []graphql.Token) []grammar.Token {
	out := make([]grammar.Token, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, grammar.Token{Kind: grammar.TokenKind(tok.Kind), Text: tok.Text, Pos: tok.Pos})
	}
	return out
}
