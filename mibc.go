// Package mibc compiles SMI/ASN.1 MIB modules into target artifacts.
//
// The Compiler resolves a requested set of module names against ordered
// Sources, parses and symbol-tables what it finds, skips modules whose
// compiled artifacts are still fresh, generates artifacts for the rest,
// borrows precompiled substitutes for modules that failed, and stores
// the results all-or-nothing unless told to tolerate errors. Every
// module name touched along the way gets exactly one Outcome.
package mibc

import (
	"context"
	"log/slog"
)

// LevelTrace is a custom log level more verbose than Debug.
// Use for per-item iteration logging (worklist pops, source probes).
// Enable with: &slog.HandlerOptions{Level: slog.Level(-8)}
const LevelTrace = slog.Level(-8)

// IndexName is the reserved artifact name BuildIndex stores under.
const IndexName = "index"

// Compiler orchestrates MIB transformation. Required collaborators are
// passed to New; sources, searchers and borrowers are optional, ordered,
// and tried in registration order.
type Compiler struct {
	parser     Parser
	codegen    CodeGenerator
	writer     Writer
	symbols    SymbolBuilder
	provenance Provenance
	logger     *slog.Logger

	sources   []Source
	searchers []Searcher
	borrowers []Borrower
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for debug/trace output.
// If not set, no logging occurs (zero overhead).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithSymbolBuilder replaces the default symbol table builder.
func WithSymbolBuilder(b SymbolBuilder) Option {
	return func(c *Compiler) { c.symbols = b }
}

// WithProvenance replaces the default build-provenance collaborator.
func WithProvenance(p Provenance) Option {
	return func(c *Compiler) { c.provenance = p }
}

// New creates a Compiler from its required collaborators.
func New(parser Parser, codegen CodeGenerator, writer Writer, opts ...Option) *Compiler {
	c := &Compiler{
		parser:     parser,
		codegen:    codegen,
		writer:     writer,
		symbols:    symbolBuilder{},
		provenance: NewSystemProvenance(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSources registers MIB text repositories, tried in order.
// Returns the compiler for call chaining.
func (c *Compiler) AddSources(sources ...Source) *Compiler {
	c.sources = append(c.sources, sources...)
	if logEnabled(c.logger, slog.LevelDebug) {
		for _, s := range sources {
			c.logger.Debug("source registered", slog.String("source", describe(s)))
		}
	}
	return c
}

// AddSearchers registers compiled-artifact locations consulted for
// freshness, tried in order.
func (c *Compiler) AddSearchers(searchers ...Searcher) *Compiler {
	c.searchers = append(c.searchers, searchers...)
	if logEnabled(c.logger, slog.LevelDebug) {
		for _, s := range searchers {
			c.logger.Debug("searcher registered", slog.String("searcher", describe(s)))
		}
	}
	return c
}

// AddBorrowers registers precompiled-artifact providers used as a
// fallback for modules that failed, tried in order.
func (c *Compiler) AddBorrowers(borrowers ...Borrower) *Compiler {
	c.borrowers = append(c.borrowers, borrowers...)
	if logEnabled(c.logger, slog.LevelDebug) {
		for _, b := range borrowers {
			c.logger.Debug("borrower registered", slog.String("borrower", describe(b)))
		}
	}
	return c
}

// CompileOption configures a single Compile run.
type CompileOption func(*compileConfig)

type compileConfig struct {
	ignoreErrors bool
	rebuild      bool
	noDeps       bool
	writeMibs    bool
	dryRun       bool
	gen          GenOptions
}

func defaultCompileConfig() compileConfig {
	return compileConfig{writeMibs: true}
}

// WithIgnoreErrors stores successfully built modules even when other
// modules in the same run failed.
func WithIgnoreErrors() CompileOption {
	return func(c *compileConfig) { c.ignoreErrors = true }
}

// WithRebuild treats all existing artifacts as stale, forcing
// recompilation.
func WithRebuild() CompileOption {
	return func(c *compileConfig) { c.rebuild = true }
}

// WithNoDeps excludes transitively imported modules from generation and
// borrowing. They are still fetched and parsed so symbol references
// resolve, and end up marked untouched.
func WithNoDeps() CompileOption {
	return func(c *compileConfig) { c.noDeps = true }
}

// WithoutWrite runs the full pipeline but skips the store phase.
func WithoutWrite() CompileOption {
	return func(c *compileConfig) { c.writeMibs = false }
}

// WithDryRun asks the writer to skip persistence while still reporting
// success.
func WithDryRun() CompileOption {
	return func(c *compileConfig) { c.dryRun = true }
}

// WithGenOptions forwards generation knobs to the code generator.
func WithGenOptions(opts GenOptions) CompileOption {
	return func(c *compileConfig) { c.gen = opts }
}

// logEnabled returns true if logging is enabled at the given level.
func logEnabled(logger *slog.Logger, level slog.Level) bool {
	return logger != nil && logger.Enabled(context.Background(), level)
}
