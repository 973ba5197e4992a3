// Package render turns a lexer's raw token stream into the line-organized,
// category-tagged descriptor stream a host painter consumes (§6), building
// on the position/category discipline both lexers already carry
// (shared.Position, shared.Category, Token.Category()) to produce the
// sorted, multi-line-split shape a canvas renderer needs.
package render

import (
	"sort"
	"strings"

	"github.com/querycanvas/langservice/internal/docql"
	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/graphql"
	"github.com/querycanvas/langservice/internal/shared"
)

// rawToken is the common shape both lexers' tokens reduce to before
// line-splitting.
type rawToken struct {
	category    shared.Category
	text        string
	pos         shared.Position
	startOffset int
	endOffset   int
}

// DocQL renders a full DocQL token stream (the raw stream including
// whitespace/comments, not the significant-only subset) into per-line
// descriptors, marking any token overlapping a diagnostic's offset range.
func DocQL(tokens []docql.Token, diagnostics []errs.Diagnostic) []shared.RenderLine {
	raw := make([]rawToken, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == docql.EOF {
			continue
		}
		raw = append(raw, rawToken{category: tok.Category(), text: tok.Text, pos: tok.Pos, startOffset: tok.Pos.StartOffset, endOffset: tok.Pos.EndOffset})
	}
	return renderLines(raw, diagnostics)
}

// GraphQL renders a full GraphQL token stream the same way DocQL does.
func GraphQL(tokens []graphql.Token, diagnostics []errs.Diagnostic) []shared.RenderLine {
	raw := make([]rawToken, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == graphql.EOF {
			continue
		}
		raw = append(raw, rawToken{category: tok.Category(), text: tok.Text, pos: tok.Pos, startOffset: tok.Pos.StartOffset, endOffset: tok.Pos.EndOffset})
	}
	return renderLines(raw, diagnostics)
}

// lineFragment is one raw token's contribution to a single source line,
// carrying the column needed to sort the line before it is discarded from
// the public RenderToken shape.
type lineFragment struct {
	line         int
	column       int
	token        shared.RenderToken
}

func renderLines(raw []rawToken, diagnostics []errs.Diagnostic) []shared.RenderLine {
	byLine := map[int][]lineFragment{}

	for _, tok := range raw {
		marked := overlapsAny(tok.startOffset, tok.endOffset, diagnostics)
		for _, frag := range splitByLine(tok) {
			frag.token.HasErrorMark = marked
			byLine[frag.line] = append(byLine[frag.line], frag)
		}
	}

	lines := make([]int, 0, len(byLine))
	for line := range byLine {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	out := make([]shared.RenderLine, 0, len(lines))
	for _, line := range lines {
		frags := byLine[line]
		sort.SliceStable(frags, func(i, j int) bool { return frags[i].column < frags[j].column })
		tokens := make([]shared.RenderToken, len(frags))
		for i, f := range frags {
			tokens[i] = f.token
		}
		out = append(out, shared.RenderLine{Line: line, Tokens: tokens})
	}
	return out
}

// splitByLine breaks one token's text at embedded newlines (block strings,
// block comments) into one fragment per physical line, the first keeping
// the token's own starting column and every continuation line starting at
// column 1.
func splitByLine(tok rawToken) []lineFragment {
	segments := strings.Split(tok.text, "\n")
	if len(segments) == 1 {
		return []lineFragment{{
			line: tok.pos.Line, column: tok.pos.Column,
			token: shared.RenderToken{Category: tok.category, Text: tok.text},
		}}
	}
	out := make([]lineFragment, 0, len(segments))
	for i, seg := range segments {
		column := 1
		if i == 0 {
			column = tok.pos.Column
		}
		out = append(out, lineFragment{
			line: tok.pos.Line + i, column: column,
			token: shared.RenderToken{Category: tok.category, Text: seg},
		})
	}
	return out
}

func overlapsAny(start, end int, diagnostics []errs.Diagnostic) bool {
	for _, d := range diagnostics {
		if start < d.EndOffset && d.StartOffset < end {
			return true
		}
	}
	return false
}
