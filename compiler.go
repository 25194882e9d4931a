package mibc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/golangsnmp/mibc/smi"
)

// moduleState tracks one module name through the pipeline. Transitions
// are monotonic within a run: pending -> parsed -> {built | failed |
// done}, failed -> borrowed -> {built | done}, built -> done.
type moduleState int

const (
	statePending moduleState = iota
	stateParsed              // fetched and parsed, awaiting freshness check / codegen
	stateFailed              // fetch, parse, generation or write failed
	stateBorrowed            // precompiled substitute fetched, awaiting freshness check
	stateBuilt               // artifact ready, awaiting store
	stateDone                // final outcome assigned
)

// moduleRecord is the per-name arena entry: current state plus whatever
// the phases have produced for it so far.
type moduleRecord struct {
	state    moduleState
	info     *ModuleInfo
	facts    *ModuleFacts
	ast      *smi.ModuleAST
	artifact []byte
	err      error
}

// run carries the per-invocation state of one Compile call. Nothing in
// it survives the call.
type run struct {
	c   *Compiler
	cfg compileConfig

	requested []string
	arena     map[string]*moduleRecord
	results   Results
	symbols   map[string]SymbolTable
	aliases   map[string][]string // canonical name -> caller-requested aliases
}

// Compile transforms the requested modules and everything they import.
//
// Per-module failures never escape as errors; they come back as Failed
// outcomes in the result mapping. Only configuration problems (no
// sources registered) and context cancellation return an error.
func (c *Compiler) Compile(ctx context.Context, names []string, opts ...CompileOption) (Results, error) {
	if len(c.sources) == 0 {
		return nil, ErrNoSources
	}

	cfg := defaultCompileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &run{
		c:         c,
		cfg:       cfg,
		requested: slices.Clone(names),
		arena:     make(map[string]*moduleRecord),
		results:   make(Results),
		symbols:   make(map[string]SymbolTable),
		aliases:   make(map[string][]string),
	}

	if err := r.resolve(ctx); err != nil {
		return nil, err
	}

	if logEnabled(c.logger, slog.LevelDebug) {
		c.logger.Debug("resolution complete",
			slog.Int("parsed", len(r.inState(stateParsed))),
			slog.Int("failed", len(r.inState(stateFailed))))
	}

	r.checkFreshness(ctx, stateParsed)
	r.generate(ctx)
	r.borrow(ctx)
	r.checkFreshness(ctx, stateBorrowed)

	if failed := r.inState(stateFailed); len(failed) > 0 && !cfg.ignoreErrors {
		if logEnabled(c.logger, slog.LevelDebug) {
			c.logger.Debug("aborting run on failed modules", slog.Any("modules", failed))
		}
		for _, name := range r.inState(stateBuilt) {
			r.results[name] = Outcome{Status: StatusUnprocessed}
			r.arena[name].state = stateDone
		}
		return r.results, nil
	}

	r.store(ctx)
	return r.results, nil
}

// resolve is the worklist phase: fetch and parse every requested module
// and everything reachable through imports, exactly once per name.
func (r *run) resolve(ctx context.Context) error {
	logger := r.c.logger
	queue := slices.Clone(r.requested)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := queue[0]
		queue = queue[1:]

		if rec, ok := r.arena[name]; ok && (rec.state != statePending) {
			if logEnabled(logger, LevelTrace) {
				logger.Log(ctx, LevelTrace, "module already resolved", slog.String("module", name))
			}
			continue
		}

		fetched := false
		failed := false

		for _, source := range r.c.sources {
			if logEnabled(logger, LevelTrace) {
				logger.Log(ctx, LevelTrace, "trying source",
					slog.String("module", name), slog.String("source", describe(source)))
			}

			info, text, err := source.Fetch(name)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				// First substantive error wins; later sources are not
				// tried for this name in this pass.
				r.fail(name, &Error{Module: name, Handler: describe(source), Err: err})
				failed = true
				break
			}

			imports, perr := r.parseFetched(name, info, text)
			if perr != nil {
				r.fail(name, perr)
				failed = true
				break
			}

			queue = append(queue, imports...)
			fetched = true
			break
		}

		if !fetched && !failed {
			r.missing(name)
		}
	}
	return nil
}

// parseFetched feeds one fetched text blob to the parser and folds every
// module it declares into the arena and the symbol table map. Returns
// the union of the parsed modules' imports.
func (r *run) parseFetched(name string, info *ModuleInfo, text []byte) ([]string, *Error) {
	logger := r.c.logger

	asts, err := r.c.parser.Parse(text)
	if err != nil {
		ferr := &Error{Module: name, Handler: describe(r.c.parser), Err: err}
		var perr *smi.ParseError
		if errors.As(err, &perr) {
			ferr.Line = perr.Line
		}
		return nil, ferr
	}

	var imports []string
	for _, ast := range asts {
		facts, table, err := r.c.symbols.Build(ast, r.symbols)
		if err != nil {
			return nil, &Error{Module: name, Handler: describe(r.c.symbols), Err: err}
		}

		r.symbols[facts.Name] = table
		r.arena[facts.Name] = &moduleRecord{
			state: stateParsed,
			info:  info,
			facts: facts,
			ast:   ast,
		}

		// The arena overwrite above retires any earlier failure under the
		// canonical name; drop its outcome too.
		delete(r.results, facts.Name)

		imports = append(imports, facts.Imports...)

		// Track the caller's alias so noDeps can tell requested modules
		// from ones pulled in as imports.
		if slices.Contains(r.requested, info.Name) {
			r.aliases[facts.Name] = append(r.aliases[facts.Name], info.Name)
		}

		if logEnabled(logger, slog.LevelDebug) {
			logger.Debug("module parsed",
				slog.String("module", facts.Name),
				slog.String("alias", name),
				slog.String("path", info.Path),
				slog.Any("imports", facts.Imports))
		}
	}
	return imports, nil
}

// checkFreshness runs the searcher protocol over every module in the
// given state. A confirmed-fresh module becomes untouched; otherwise a
// parsed module proceeds to generation and a borrowed one is promoted
// to built with a borrowed outcome. The noDeps rule excludes modules
// that were never requested by alias.
func (r *run) checkFreshness(ctx context.Context, state moduleState) {
	logger := r.c.logger

	for _, name := range r.inState(state) {
		rec := r.arena[name]
		fresh := false

		for _, searcher := range r.c.searchers {
			err := searcher.CheckFresh(name, rec.info.ModTime, r.cfg.rebuild)
			switch {
			case errors.Is(err, ErrNotModified):
				if logEnabled(logger, slog.LevelDebug) {
					logger.Debug("existing compiled module is fresh",
						slog.String("module", name), slog.String("searcher", describe(searcher)))
				}
				fresh = true
			case err == nil || errors.Is(err, ErrNotFound):
				continue
			default:
				// Searcher trouble is advisory; keep asking the rest.
				if logEnabled(logger, slog.LevelDebug) {
					logger.Debug("searcher error",
						slog.String("module", name),
						slog.String("searcher", describe(searcher)),
						slog.Any("error", err))
				}
				continue
			}
			break
		}

		if fresh {
			r.results[name] = Outcome{Status: StatusUntouched}
			rec.state = stateDone
			continue
		}

		excluded := r.cfg.noDeps && len(r.aliases[name]) == 0

		switch state {
		case stateParsed:
			if excluded {
				r.results[name] = Outcome{Status: StatusUntouched}
				rec.state = stateDone
			}
		case stateBorrowed:
			if excluded {
				r.results[name] = Outcome{Status: StatusUntouched}
				rec.state = stateDone
				continue
			}
			rec.state = stateBuilt
			r.results[name] = Outcome{
				Status: StatusBorrowed,
				Path:   rec.info.Path,
				File:   rec.info.File,
				Alias:  rec.info.Name,
			}
		}
	}
}

// generate runs code generation over every parsed module.
func (r *run) generate(ctx context.Context) {
	logger := r.c.logger

	for _, name := range r.inState(stateParsed) {
		rec := r.arena[name]

		comments := r.c.provenance.Comments(rec.info.Path)
		facts, artifact, err := r.c.codegen.Generate(rec.ast, r.symbols, comments, r.cfg.gen)
		if err != nil {
			r.fail(name, &Error{Module: name, Handler: describe(r.c.codegen), Err: err})
			continue
		}

		rec.facts = facts
		rec.artifact = artifact
		rec.state = stateBuilt
		rec.ast = nil

		if logEnabled(logger, slog.LevelDebug) {
			logger.Debug("module generated",
				slog.String("module", name), slog.String("path", rec.info.Path))
		}
	}
}

// borrow tries each borrower for every failed module, skipping names the
// noDeps rule excludes. A successful borrow clears the failure.
func (r *run) borrow(ctx context.Context) {
	logger := r.c.logger

	for _, name := range r.inState(stateFailed) {
		if r.cfg.noDeps && len(r.aliases[name]) == 0 {
			continue
		}

		rec := r.arena[name]
		for _, borrower := range r.c.borrowers {
			info, artifact, err := borrower.Fetch(name, r.cfg.gen)
			if err != nil {
				if logEnabled(logger, slog.LevelDebug) {
					logger.Debug("borrow attempt failed",
						slog.String("module", name),
						slog.String("borrower", describe(borrower)),
						slog.Any("error", err))
				}
				continue
			}

			rec.state = stateBorrowed
			rec.info = info
			rec.artifact = artifact
			rec.facts = &ModuleFacts{Name: name}
			rec.err = nil

			if logEnabled(logger, slog.LevelDebug) {
				logger.Debug("module borrowed",
					slog.String("module", name), slog.String("borrower", describe(borrower)))
			}
			break
		}
	}
}

// store persists every built artifact. A write failure demotes the
// module to failed even if it was counted successful until now.
func (r *run) store(ctx context.Context) {
	logger := r.c.logger

	for _, name := range r.inState(stateBuilt) {
		rec := r.arena[name]

		if r.cfg.writeMibs {
			if err := r.c.writer.Store(name, rec.artifact, nil, r.cfg.dryRun); err != nil {
				r.fail(name, &Error{Module: name, Handler: describe(r.c.writer), Err: err})
				continue
			}
		}

		if _, assigned := r.results[name]; !assigned {
			r.results[name] = Outcome{
				Status:     StatusCompiled,
				Path:       rec.info.Path,
				File:       rec.info.File,
				Alias:      rec.info.Name,
				OID:        rec.facts.OID,
				Identity:   rec.facts.Identity,
				Revision:   rec.facts.Revision,
				Enterprise: rec.facts.Enterprise,
				Compliance: rec.facts.Compliance,
				Imports:    rec.facts.Imports,
			}
		}
		rec.state = stateDone
		rec.artifact = nil

		if logEnabled(logger, slog.LevelDebug) {
			logger.Debug("module stored", slog.String("module", name))
		}
	}
}

// fail records a failure for name, replacing any prior outcome.
func (r *run) fail(name string, err *Error) {
	r.arena[name] = &moduleRecord{state: stateFailed, err: err}
	r.results[name] = Outcome{Status: StatusFailed, Err: err}

	if logEnabled(r.c.logger, slog.LevelDebug) {
		r.c.logger.Debug("module failed",
			slog.String("module", name), slog.Any("error", err))
	}
}

// missing records that no source had the module. The name still joins
// the failed set so borrowing may rescue it.
func (r *run) missing(name string) {
	if rec, ok := r.arena[name]; ok && rec.state == stateFailed {
		return
	}
	err := &Error{Module: name, Err: fmt.Errorf("MIB source %s not found", name)}
	r.arena[name] = &moduleRecord{state: stateFailed, err: err}
	if _, assigned := r.results[name]; !assigned {
		r.results[name] = Outcome{Status: StatusMissing}
	}

	if logEnabled(r.c.logger, slog.LevelDebug) {
		r.c.logger.Debug("module not found anywhere", slog.String("module", name))
	}
}

// inState returns the module names currently in the given state, sorted
// so phase iteration order is deterministic.
func (r *run) inState(state moduleState) []string {
	var names []string
	for name, rec := range r.arena {
		if rec.state == state {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
