// Package grammar implements the JSON-driven recursive grammar matcher
// shared by validation and completion. A Grammar is a map from rule name to
// its alternative productions, loaded once and treated as immutable; symbol
// kinds form a closed set dispatched through a switch over a tagged
// variant, the same discipline a compile-time Go type switch gives an AST,
// rebuilt here as a runtime JSON-driven one.
package grammar

import "fmt"

// SymbolKind is the closed set of grammar symbol shapes.
type SymbolKind string

const (
	SymbolToken     SymbolKind = "token"
	SymbolLiteral   SymbolKind = "literal"
	SymbolReference SymbolKind = "reference"
	SymbolBranches  SymbolKind = "branches"
)

// Symbol is one element of a production. Exactly one of Name/Text/Branches
// is populated, selected by Kind; this mirrors the loader's JSON
// shape rather than using an interface, so matching stays a closed switch.
type Symbol struct {
	Kind       SymbolKind
	Name       string   // token(name) / reference(rule)
	Text       string   // literal(text)
	Branches   []Branch // branches([...])
	Optional   bool
	Repeatable bool
}

// Branch is one alternative inside a branches([...]) symbol: a short
// production of its own.
type Branch struct {
	Symbols []Symbol
}

// IsContextual reports whether a token(name) symbol is a contextual
// reference (lower-case name) rather than a literal token kind match.
func (s Symbol) IsContextual() bool {
	if s.Kind != SymbolToken {
		return false
	}
	return s.Name != "" && !isAllUpper(s.Name)
}

func isAllUpper(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return true
}

// Production is one ordered alternative for a rule.
type Production struct {
	Symbols []Symbol
}

// Rule is a named set of alternative productions.
type Rule struct {
	Name        string
	Productions []Production
}

// Family groups rule entries under one statement family (DDL, DML, DOL,
// Migration), dispatched on by the first significant token of a statement.
type Family string

const (
	FamilyDDL       Family = "ddl"
	FamilyDML       Family = "dml"
	FamilyDOL       Family = "dol"
	FamilyMigration Family = "migration"
)

// Grammar is one loaded, immutable grammar document: a semantic version, the
// dispatchable entry rule names, and a map from rule name to its rule.
type Grammar struct {
	Version string
	Family  Family
	Entries []string // dispatchable top-level rule names, in priority order
	Rules   map[string]Rule
}

// Rule looks up a rule by name, returning ok=false if undefined — callers
// treat an undefined rule as a NO_MATCHING_RULE failure rather than a panic.
func (g *Grammar) Rule(name string) (Rule, bool) {
	r, ok := g.Rules[name]
	return r, ok
}

func (g *Grammar) String() string {
	return fmt.Sprintf("grammar(family=%s, version=%s, rules=%d)", g.Family, g.Version, len(g.Rules))
}
