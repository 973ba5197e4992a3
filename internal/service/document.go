package service

import (
	"context"
	"fmt"

	"github.com/samber/oops"

	"github.com/querycanvas/langservice/internal/cache"
	"github.com/querycanvas/langservice/internal/docql"
	"github.com/querycanvas/langservice/internal/errs"
	"github.com/querycanvas/langservice/internal/grammar"
	"github.com/querycanvas/langservice/internal/graphql"
	"github.com/querycanvas/langservice/internal/render"
	"github.com/querycanvas/langservice/internal/schema"
	"github.com/querycanvas/langservice/internal/shared"
	"github.com/querycanvas/langservice/internal/statementparser"
	"github.com/querycanvas/langservice/internal/suggest"
	"github.com/querycanvas/langservice/internal/validate"
)

// ValidationResult is the public shape of a validate() response (§6).
type ValidationResult struct {
	Valid    bool
	Errors   []errs.Diagnostic
	Warnings []errs.Diagnostic
	Infos    []errs.Diagnostic
}

// UpdateDocument re-lexes text, splits it into statements, diffs the
// result against the cache, and restarts the debounce timer (§4.4,
// §5's "update_document cancels the pending debounced validation and
// schedules a new one"). It returns once splitting and diffing finish;
// validation itself runs asynchronously off the debounce timer.
func (f *Facade) UpdateDocument(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateInitialized && f.state != StateActive {
		return fmt.Errorf("service: UpdateDocument called in state %s", f.state)
	}
	f.markActive()

	f.text = text
	var statements []*cache.Statement
	switch f.language {
	case LanguageGraphQL:
		f.graphqlTokens = graphql.Tokenize(text)
		statements = statementparser.SplitGraphQL(text, f.graphqlTokens)
	default:
		f.docqlTokens = docql.Tokenize(text)
		statements = statementparser.SplitDocQL(text, f.docqlTokens)
	}
	f.queue.OnTextChange(f.documentID, statements)
	return nil
}

// ParseStatements returns the document's current statement boundaries
// without forcing validation (§6's parse_statements).
func (f *Facade) ParseStatements() []*cache.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cache.Statements(f.documentID)
}

// Validate forces the pending validation pass to completion and returns
// the aggregated result across every statement in the document (§6).
func (f *Facade) Validate(ctx context.Context) (ValidationResult, error) {
	f.mu.Lock()
	if f.state != StateInitialized && f.state != StateActive {
		f.mu.Unlock()
		return ValidationResult{}, fmt.Errorf("service: Validate called in state %s", f.state)
	}
	documentID := f.documentID
	f.mu.Unlock()

	f.queue.ForceValidation(documentID)

	f.mu.Lock()
	defer f.mu.Unlock()
	list := errs.New()
	for _, stmt := range f.cache.Statements(documentID) {
		for _, d := range stmt.Errors {
			list.Add(d)
		}
	}
	errors, warnings, infos := list.Split()
	return ValidationResult{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
		Infos:    infos,
	}, nil
}

// validateStatement is the statementparser.Validator this facade installs
// into its Queue; it dispatches to the language-appropriate validator
// (internal/validate). No timeout is applied: the validators take no
// context and read only the local schema context, never the server.
func (f *Facade) validateStatement(documentID string, stmt *cache.Statement) (bool, []errs.Diagnostic) {
	switch f.language {
	case LanguageGraphQL:
		return validate.GraphQL(f.schemaCtx, stmt)
	default:
		return validate.DocQL(f.grammarEngine, f.schemaCtx, stmt, f.schemaCtx.CurrentDatabase())
	}
}

// GetSuggestions runs the completion pipeline at cursorOffset against the
// document's latest token stream (§6's get_suggestions). Before ranking
// candidates it warms the expander's view of the current database's
// bundles, so a bundle the context hasn't loaded yet still contributes
// field/relationship suggestions instead of being silently skipped. The
// warming pass honors the configured server-call timeout so a slow server
// can't stall this call, and with it every other Facade method waiting on
// f.mu, indefinitely.
func (f *Facade) GetSuggestions(cursorOffset int) []suggest.Suggestion {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.ServerCallTimeout)
	defer cancel()
	f.warmCurrentDatabase(ctx)

	switch f.language {
	case LanguageGraphQL:
		tokens := toGrammarTokensGraphQL(graphql.Significant(f.graphqlTokens))
		return f.suggestEngine.Suggest(f.grammarEngine, f.schemaCtx, suggest.LanguageGraphQL, tokens, f.text, cursorOffset)
	default:
		tokens := toGrammarTokensDocQL(docql.Significant(f.docqlTokens))
		return f.suggestEngine.Suggest(f.grammarEngine, f.schemaCtx, suggest.LanguageDocQL, tokens, f.text, cursorOffset)
	}
}

// warmCurrentDatabase expands every bundle in the current database through
// the cache/context/server chain (§4.5), so the suggestion engine's direct
// schema.Context reads see a bundle's fields even on the first request
// after a server refresh populated only bundle names. Callers must hold
// f.mu.
func (f *Facade) warmCurrentDatabase(ctx context.Context) {
	database := f.schemaCtx.CurrentDatabase()
	if database == "" {
		return
	}
	for _, bundle := range f.schemaCtx.GetAllBundles(database) {
		f.expander.ExpandFields(ctx, database, bundle)
	}
}

// RecordSuggestionUsage feeds an accepted suggestion's label back into the
// ranking engine's usage counters (§6).
func (f *Facade) RecordSuggestionUsage(label string) {
	f.suggestEngine.RecordUsage(label)
}

// SetDatabaseContext selects which database unqualified bundle references
// resolve against (§6). A blank name clears the selection.
func (f *Facade) SetDatabaseContext(name string) {
	f.schemaCtx.SetCurrentDatabase(name)
}

// UpdateContextData replaces the schema context wholesale from a
// host-supplied snapshot, bypassing a server round trip (§6).
func (f *Facade) UpdateContextData(defs []schema.DatabaseDefinition) {
	f.schemaCtx.UpdateContextData(defs)
}

// RefreshSchema forces a server-backed schema refresh against the server
// supplied at construction, honoring the configured server-call timeout
// (§5).
func (f *Facade) RefreshSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ServerCallTimeout)
	defer cancel()
	if err := f.schemaCtx.RefreshFromServer(ctx, f.server); err != nil {
		return oops.Code("SCHEMA_REFRESH_FAILED").With("document_id", f.documentID).Wrap(err)
	}
	return nil
}

// RenderLines converts the document's raw token stream (including
// whitespace and comments) into the line-organized descriptor stream a
// canvas painter consumes (§6), marking spans covered by the most recent
// validation diagnostics.
func (f *Facade) RenderLines() []shared.RenderLine {
	f.mu.Lock()
	defer f.mu.Unlock()

	var diagnostics []errs.Diagnostic
	for _, stmt := range f.cache.Statements(f.documentID) {
		diagnostics = append(diagnostics, stmt.Errors...)
	}

	switch f.language {
	case LanguageGraphQL:
		return render.GraphQL(f.graphqlTokens, diagnostics)
	default:
		return render.DocQL(f.docqlTokens, diagnostics)
	}
}

func toGrammarTokensDocQL(tokens []docql.Token) []grammar.Token {
	out := make([]grammar.Token, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, grammar.Token{Kind: grammar.TokenKind(tok.Kind), Text: tok.Text, Pos: tok.Pos})
	}
	return out
}

func toGrammarTokensGraphQL(tokens []graphql.Token) []grammar.Token {
	out := make([]grammar.Token, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, grammar.Token{Kind: grammar.TokenKind(tok.Kind), Text: tok.Text, Pos: tok.Pos})
	}
	return out
}
