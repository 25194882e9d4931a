package mibc

import (
	"encoding/json"
	"fmt"

	"github.com/golangsnmp/mibc/smi"
)

// JSONGenerator transforms parsed modules into structured JSON
// documents, one per module, plus an aggregate index manifest.
type JSONGenerator struct{}

func (*JSONGenerator) String() string { return "JSONGenerator" }

type jsonDefinition struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	OID  string `json:"oid,omitempty"`
	Line int    `json:"line,omitempty"`
}

type jsonRevision struct {
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

type jsonIdentity struct {
	Name         string         `json:"name"`
	LastUpdated  string         `json:"lastUpdated,omitempty"`
	Organization string         `json:"organization,omitempty"`
	Revisions    []jsonRevision `json:"revisions,omitempty"`
}

type jsonModule struct {
	Module      string              `json:"module"`
	Comments    []string            `json:"comments,omitempty"`
	Imports     map[string][]string `json:"imports,omitempty"`
	Identity    *jsonIdentity       `json:"identity,omitempty"`
	Definitions []jsonDefinition    `json:"definitions"`
}

// Generate renders one module as a JSON document. Cross-module symbol
// references are checked against the accumulated symbol tables: an
// import from a known module that lacks the symbol is a semantic error.
func (g *JSONGenerator) Generate(ast *smi.ModuleAST, symbols map[string]SymbolTable, comments []string, opts GenOptions) (*ModuleFacts, []byte, error) {
	imports := make(map[string][]string)
	for _, imp := range ast.Imports {
		if table, known := symbols[imp.Module]; known && imp.Module != ast.Name {
			if _, ok := table[imp.Symbol]; !ok && !isWellKnown(imp.Symbol) {
				return nil, nil, fmt.Errorf("no symbol %s::%s", imp.Module, imp.Symbol)
			}
		}
		imports[imp.Module] = append(imports[imp.Module], imp.Symbol)
	}

	doc := jsonModule{
		Module:      ast.Name,
		Comments:    comments,
		Imports:     imports,
		Definitions: make([]jsonDefinition, 0, len(ast.Definitions)),
	}

	if id := ast.Identity; id != nil {
		ji := &jsonIdentity{
			Name:         id.Name,
			LastUpdated:  id.LastUpdated,
			Organization: id.Organization,
		}
		if opts.GenTexts {
			for _, rev := range id.Revisions {
				ji.Revisions = append(ji.Revisions, jsonRevision{
					Date:        rev.Date,
					Description: filterText(opts, rev.Date, rev.Description),
				})
			}
		} else {
			for _, rev := range id.Revisions {
				ji.Revisions = append(ji.Revisions, jsonRevision{Date: rev.Date})
			}
		}
		doc.Identity = ji
	}

	for _, def := range ast.Definitions {
		doc.Definitions = append(doc.Definitions, jsonDefinition{
			Name: def.Name,
			Kind: def.Kind.String(),
			OID:  renderOID(def.OID),
			Line: def.Line,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, nil, err
	}

	facts, _, err := symbolBuilder{}.Build(ast, symbols)
	if err != nil {
		return nil, nil, err
	}
	return facts, data, nil
}

type jsonIndexEntry struct {
	Status     string   `json:"status"`
	Path       string   `json:"path,omitempty"`
	Alias      string   `json:"alias,omitempty"`
	OID        string   `json:"oid,omitempty"`
	Identity   string   `json:"identity,omitempty"`
	Revision   string   `json:"revision,omitempty"`
	Enterprise string   `json:"enterprise,omitempty"`
	Imports    []string `json:"imports,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type jsonIndex struct {
	Comments []string                  `json:"comments,omitempty"`
	Modules  map[string]jsonIndexEntry `json:"modules"`
}

// GenerateIndex produces the aggregate manifest for a whole run,
// merging entries from a previously stored index so incremental runs
// keep accumulating.
func (g *JSONGenerator) GenerateIndex(processed Results, comments []string, oldIndex []byte) ([]byte, error) {
	idx := jsonIndex{
		Comments: comments,
		Modules:  make(map[string]jsonIndexEntry),
	}

	if len(oldIndex) > 0 {
		var old jsonIndex
		// A corrupt old index is not worth failing the run over.
		if err := json.Unmarshal(oldIndex, &old); err == nil {
			for name, entry := range old.Modules {
				idx.Modules[name] = entry
			}
		}
	}

	for name, outcome := range processed {
		entry := jsonIndexEntry{
			Status:     outcome.Status.String(),
			Path:       outcome.Path,
			Alias:      outcome.Alias,
			OID:        outcome.OID,
			Identity:   outcome.Identity,
			Revision:   outcome.Revision,
			Enterprise: outcome.Enterprise,
			Imports:    outcome.Imports,
		}
		if outcome.Err != nil {
			entry.Error = outcome.Err.Error()
		}
		idx.Modules[name] = entry
	}

	return json.MarshalIndent(idx, "", "  ")
}

func filterText(opts GenOptions, name, text string) string {
	if opts.TextFilter != nil {
		return opts.TextFilter(name, text)
	}
	return text
}

// wellKnownSymbols are base SMI symbols whose defining macro modules
// (SNMPv2-SMI, SNMPv2-TC and friends) declare them inside MACRO bodies
// the structural parser does not descend into.
var wellKnownSymbols = map[string]struct{}{
	"MODULE-IDENTITY": {}, "OBJECT-IDENTITY": {}, "OBJECT-TYPE": {},
	"NOTIFICATION-TYPE": {}, "TRAP-TYPE": {}, "TEXTUAL-CONVENTION": {},
	"MODULE-COMPLIANCE": {}, "OBJECT-GROUP": {}, "NOTIFICATION-GROUP": {},
	"AGENT-CAPABILITIES": {},
}

func isWellKnown(symbol string) bool {
	_, ok := wellKnownSymbols[symbol]
	return ok
}

// NullGenerator discards module content, producing empty artifacts.
// Useful for dependency walks and dry measurements.
type NullGenerator struct{}

func (*NullGenerator) String() string { return "NullGenerator" }

func (*NullGenerator) Generate(ast *smi.ModuleAST, symbols map[string]SymbolTable, comments []string, opts GenOptions) (*ModuleFacts, []byte, error) {
	facts, _, err := symbolBuilder{}.Build(ast, symbols)
	if err != nil {
		return nil, nil, err
	}
	return facts, nil, nil
}

func (*NullGenerator) GenerateIndex(processed Results, comments []string, oldIndex []byte) ([]byte, error) {
	return nil, nil
}
