package mibc

import (
	"time"

	"github.com/golangsnmp/mibc/smi"
)

// ModuleInfo describes where a module's text or artifact came from.
// Produced by a Source or Borrower; immutable once created.
type ModuleInfo struct {
	Name    string // alias the module was requested or located under
	Path    string // origin path or URI, for diagnostics
	File    string // originating file name
	ModTime time.Time
}

// ModuleFacts are the semantic facts extracted from a parsed module:
// its canonical self-declared name, imports, and identity metadata.
// Produced by the symbol builder and enriched by code generation.
type ModuleFacts struct {
	Name       string // canonical name declared inside the module text
	Imports    []string
	OID        string
	Identity   string
	Revision   string
	Enterprise string
	Compliance []string
}

// SymbolTable maps a module's exported symbol names to their kinds.
// Tables accumulate per canonical module name as modules are parsed,
// letting later modules resolve cross-module references.
type SymbolTable map[string]smi.DefKind
