// Package suggest implements the completion engine (§4.7): partial-word
// extraction, grammar-driven expected-next resolution for DocQL, a
// hand-written selection-set walk for GraphQL (which the JSON grammar
// engine does not cover), fuzzy filtering, usage-weighted ranking, and
// memoization of the resulting suggestion list.
package suggest

// Kind is the closed set of suggestion categories a host editor renders
// distinctly (icon, color).
type Kind string

const (
	KindKeyword      Kind = "keyword"
	KindDatabase     Kind = "database"
	KindBundle       Kind = "bundle"
	KindField        Kind = "field"
	KindUser         Kind = "user"
	KindFunction     Kind = "function"
	KindOperator     Kind = "operator"
	KindValue        Kind = "value"
	KindSnippet      Kind = "snippet"
	KindRelationship Kind = "relationship"
	KindPermission   Kind = "permission"
)

// Language selects which statement language a Suggest call resolves
// suggestions for; the two share the ranking/fuzzy/memo pipeline but
// diverge entirely on how the raw candidate set is produced.
type Language string

const (
	LanguageDocQL   Language = "docql"
	LanguageGraphQL Language = "graphql"
)

// Suggestion is one completion candidate (§4.7).
type Suggestion struct {
	Label         string
	Kind          Kind
	Detail        string
	Documentation string
	InsertText    string
	Priority      int
	SortText      string
}

// Base priorities for freshly generated candidates, before the usage-count
// boost in rank(). Contextual (schema-backed) suggestions outrank bare
// keywords since they are usually what the user is after once a clause
// keyword has already been typed.
const (
	priorityKeyword      = 50
	priorityOperator     = 55
	prioritySnippet      = 40
	priorityDatabase     = 60
	priorityBundle       = 60
	priorityField        = 70
	priorityRelationship = 55
	priorityPlaceholder  = 30
)
