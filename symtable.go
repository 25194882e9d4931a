package mibc

import (
	"fmt"
	"strings"

	"github.com/golangsnmp/mibc/smi"
)

// symbolBuilder is the default SymbolBuilder. It derives a module's
// facts and exported symbol table from the structural AST.
type symbolBuilder struct{}

func (symbolBuilder) String() string { return "SymbolBuilder" }

func (symbolBuilder) Build(ast *smi.ModuleAST, symbols map[string]SymbolTable) (*ModuleFacts, SymbolTable, error) {
	table := make(SymbolTable, len(ast.Definitions))
	for _, def := range ast.Definitions {
		if _, dup := table[def.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate symbol %s in module %s, line %d", def.Name, ast.Name, def.Line)
		}
		table[def.Name] = def.Kind
	}

	facts := &ModuleFacts{
		Name:    ast.Name,
		Imports: ast.ImportedModules(),
	}

	if id := ast.Identity; id != nil {
		facts.Identity = id.Name
		facts.Revision = latestRevision(id)
		if def := ast.Definition(id.Name); def != nil {
			facts.OID = renderOID(def.OID)
		}
	}

	for _, def := range ast.Definitions {
		if def.Kind == smi.KindCompliance {
			facts.Compliance = append(facts.Compliance, def.Name)
		}
		if facts.Enterprise == "" && len(def.OID) > 0 && def.OID[0] == "enterprises" {
			facts.Enterprise = def.Name
		}
	}

	return facts, table, nil
}

// latestRevision picks the module's most recent revision timestamp,
// falling back to LAST-UPDATED.
func latestRevision(id *smi.Identity) string {
	latest := id.LastUpdated
	for _, rev := range id.Revisions {
		if rev.Date > latest {
			latest = rev.Date
		}
	}
	return latest
}

// renderOID joins raw OID arc components into a dotted path, keeping
// symbolic arcs symbolic (e.g. "mib-2.31").
func renderOID(arcs []string) string {
	return strings.Join(arcs, ".")
}
