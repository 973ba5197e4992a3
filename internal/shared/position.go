// Package shared holds types common to both language lexers: source
// positions and the rendering category used to drive a host's painter.
package shared

// Position marks where a token begins in the source. Line and Column are
// 1-based and captured at the token's first character; StartOffset and
// EndOffset are 0-based and exclusive at the end, the pair the grammar
// engine and cache need for slicing source text by byte range.
type Position struct {
	Line        int
	Column      int
	StartOffset int
	EndOffset   int
}

// Category is the unified rendering bucket both lexers map their token
// kinds into, so a single painter can consume either language's stream.
type Category string

const (
	CategoryKeyword     Category = "keyword"
	CategoryIdentifier  Category = "identifier"
	CategoryLiteral     Category = "literal"
	CategoryString      Category = "string"
	CategoryNumber      Category = "number"
	CategoryOperator    Category = "operator"
	CategoryPunctuation Category = "punctuation"
	CategoryComment     Category = "comment"
	CategoryWhitespace  Category = "whitespace"
	CategoryNewline     Category = "newline"
	CategoryPlaceholder Category = "placeholder"
	CategoryUnknown     Category = "unknown"
)

// RenderToken is one line-local slice of a token, as emitted by the
// rendering descriptor stream (§6). Multi-line tokens are split into one
// RenderToken per line, all sharing Category.
type RenderToken struct {
	Category      Category
	Text          string
	HasErrorMark  bool
}

// RenderLine is a sorted-by-column sequence of RenderToken for one line.
type RenderLine struct {
	Line   int
	Tokens []RenderToken
}
