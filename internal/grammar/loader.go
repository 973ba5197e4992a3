package grammar

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed data/*.json
var dataFS embed.FS

// rawSymbol is the on-disk JSON shape of a Symbol; Branches nests raw
// productions (lists of rawSymbol) rather than the typed Branch directly,
// since encoding/json can't polymorphically decode Symbol on its own.
type rawSymbol struct {
	Kind       string        `json:"kind"`
	Name       string        `json:"name,omitempty"`
	Text       string        `json:"text,omitempty"`
	Branches   [][]rawSymbol `json:"branches,omitempty"`
	Optional   bool          `json:"optional,omitempty"`
	Repeatable bool          `json:"repeatable,omitempty"`
}

type rawRule struct {
	Productions [][]rawSymbol `json:"productions"`
}

type rawGrammar struct {
	Version string             `json:"version"`
	Family  string             `json:"family"`
	Entries []string           `json:"entries"`
	Rules   map[string]rawRule `json:"rules"`
}

var metaSchema *jsonschema.Schema

func init() {
	raw, err := dataFS.ReadFile("data/meta-schema.json")
	if err != nil {
		panic(fmt.Sprintf("grammar: embedded meta-schema missing: %v", err))
	}
	doc, err := jsonschema.UnmarshalJSON(newReader(raw))
	if err != nil {
		panic(fmt.Sprintf("grammar: meta-schema is not valid JSON: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	const resourceURL = "mem://grammar-meta-schema.json"
	if err := compiler.AddResource(resourceURL, doc); err != nil {
		panic(fmt.Sprintf("grammar: meta-schema could not be registered: %v", err))
	}
	metaSchema, err = compiler.Compile(resourceURL)
	if err != nil {
		panic(fmt.Sprintf("grammar: meta-schema failed to compile: %v", err))
	}
}

// LoadFamily reads and validates the embedded grammar file for a statement
// family, converting it into an immutable *Grammar.
func LoadFamily(family Family) (*Grammar, error) {
	path := "data/" + string(family) + ".json"
	raw, err := dataFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("grammar: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates a grammar document's JSON against the meta-schema, then
// decodes it into a Grammar. Validation failures surface the offending
// JSON path via jsonschema's own error formatting.
func Parse(raw []byte) (*Grammar, error) {
	inst, err := jsonschema.UnmarshalJSON(newReader(raw))
	if err != nil {
		return nil, fmt.Errorf("grammar: invalid JSON: %w", err)
	}
	if err := metaSchema.Validate(inst); err != nil {
		return nil, fmt.Errorf("grammar: schema validation failed: %w", err)
	}

	var rg rawGrammar
	if err := json.Unmarshal(raw, &rg); err != nil {
		return nil, fmt.Errorf("grammar: decode: %w", err)
	}

	g := &Grammar{
		Version: rg.Version,
		Family:  Family(rg.Family),
		Entries: rg.Entries,
		Rules:   make(map[string]Rule, len(rg.Rules)),
	}
	for name, rr := range rg.Rules {
		rule := Rule{Name: name}
		for _, prod := range rr.Productions {
			rule.Productions = append(rule.Productions, Production{Symbols: convertSymbols(prod)})
		}
		g.Rules[name] = rule
	}
	return g, nil
}

func convertSymbols(raw []rawSymbol) []Symbol {
	out := make([]Symbol, 0, len(raw))
	for _, rs := range raw {
		sym := Symbol{
			Kind:       SymbolKind(rs.Kind),
			Name:       rs.Name,
			Text:       rs.Text,
			Optional:   rs.Optional,
			Repeatable: rs.Repeatable,
		}
		for _, b := range rs.Branches {
			sym.Branches = append(sym.Branches, Branch{Symbols: convertSymbols(b)})
		}
		out = append(out, sym)
	}
	return out
}

func newReader(b []byte) *byteReader { return &byteReader{data: b} }

// byteReader adapts a byte slice to io.Reader for jsonschema.UnmarshalJSON,
// which wants a stream rather than a slice.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
