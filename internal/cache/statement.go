// Package cache implements the per-document, byte-budgeted statement cache
// (§4.3): a hash-keyed LRU with access-weighted eviction scoring and dirty
// tracking, exposing its hit/miss/eviction counts as prometheus counters
// (plus a live-bytes gauge) behind the same lock that guards reloads.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/grammar"
)

// Statement is the cache key and validation unit (§3). Tokens are stored as
// grammar.Token, the language-agnostic shape both lexers' adapters produce.
type Statement struct {
	Text       string
	Hash       string
	Tokens     []grammar.Token
	LineStart  int
	LineEnd    int
	OffsetStart int
	OffsetEnd  int

	IsValid             bool
	IsDirty             bool
	TimestampCreated    time.Time
	TimestampLastAccess time.Time
	AccessCount         int64
	ByteSize            int64
	Errors              []errs.Diagnostic
}

// HashText returns the deterministic, content-addressed hash used as the
// cache key. Text is trimmed first so whitespace-only differences at the
// statement boundary do not produce distinct entries.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// NewStatement builds a fresh, dirty Statement for text observed between
// offsetStart and offsetEnd, with a freshly-computed hash.
func NewStatement(text string, tokens []grammar.Token, lineStart, lineEnd, offsetStart, offsetEnd int) *Statement {
	trimmed := strings.TrimSpace(text)
	return &Statement{
		Text:        trimmed,
		Hash:        HashText(text),
		Tokens:      tokens,
		LineStart:   lineStart,
		LineEnd:     lineEnd,
		OffsetStart: offsetStart,
		OffsetEnd:   offsetEnd,
		IsDirty:     true,
		ByteSize:    int64(len(trimmed)),
	}
}
