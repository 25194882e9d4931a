package mibc

import (
	"time"

	"github.com/golangsnmp/mibc/smi"
)

// Source fetches ASN.1 MIB text by module name.
//
// Fetch returns an error satisfying errors.Is(err, ErrNotFound) when the
// module is absent here (the compiler tries the next source). Any other
// error is substantive: the compiler records a failure for the module
// and stops trying further sources for it.
type Source interface {
	Fetch(name string) (*ModuleInfo, []byte, error)
}

// Searcher checks whether a fresh compiled artifact already exists.
//
// CheckFresh returns ErrNotModified when an artifact exists that is not
// older than modTime (the module needs no work), an error satisfying
// errors.Is(err, ErrNotFound) when no artifact exists here, or any other
// error as a non-fatal, advisory failure (the compiler logs it and tries
// the next searcher). A true rebuild flag asks the searcher to treat any
// existing artifact as stale.
type Searcher interface {
	CheckFresh(name string, modTime time.Time, rebuild bool) error
}

// Borrower fetches a precompiled artifact for a module whose own
// compilation failed. Any error means "try the next borrower".
type Borrower interface {
	Fetch(name string, opts GenOptions) (*ModuleInfo, []byte, error)
}

// Writer persists compiled artifacts.
//
// Store must not write anything when dryRun is true, while still
// reporting success. Load returns a previously stored artifact for
// incremental index rebuilding; it is best-effort and returns nil when
// nothing is stored.
type Writer interface {
	Store(name string, artifact []byte, comments []string, dryRun bool) error
	Load(name string) []byte
}

// Parser turns raw MIB text into module ASTs. One text blob may declare
// several modules. Errors from malformed text carry a line number
// (see smi.ParseError).
type Parser interface {
	Parse(text []byte) ([]*smi.ModuleAST, error)
}

// ParserFunc adapts a plain function (such as smi.Parse) to Parser.
type ParserFunc func(text []byte) ([]*smi.ModuleAST, error)

func (f ParserFunc) Parse(text []byte) ([]*smi.ModuleAST, error) { return f(text) }

// CodeGenerator transforms a parsed module into a target artifact using
// the accumulated symbol tables. GenerateIndex produces one aggregate
// artifact summarizing a whole run.
type CodeGenerator interface {
	Generate(ast *smi.ModuleAST, symbols map[string]SymbolTable, comments []string, opts GenOptions) (*ModuleFacts, []byte, error)
	GenerateIndex(processed Results, comments []string, oldIndex []byte) ([]byte, error)
}

// SymbolBuilder extracts a module's facts and exported symbols, given
// the symbol tables accumulated so far. Invoked once per parsed module,
// before code generation.
type SymbolBuilder interface {
	Build(ast *smi.ModuleAST, symbols map[string]SymbolTable) (*ModuleFacts, SymbolTable, error)
}

// Provenance supplies the descriptive comment lines embedded in
// generated artifacts (source path, producer, host, run identity).
// Injected so the compiler core stays deterministic under test.
type Provenance interface {
	Comments(sourcePath string) []string
}

// GenOptions are pass-through knobs for code generators.
type GenOptions struct {
	// GenTexts includes human-readable DESCRIPTION texts in artifacts.
	GenTexts bool
	// TextFilter post-processes description texts; nil means verbatim.
	TextFilter func(name, text string) string
	// DstTemplate names an output template understood by the generator.
	DstTemplate string
}
