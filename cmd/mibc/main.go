// Command mibc compiles SMI MIB modules into JSON artifacts, resolving
// imports across configured sources and skipping modules whose compiled
// form is still fresh.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/golangsnmp/mibc"
	"github.com/golangsnmp/mibc/smi"
)

// Exit codes.
const (
	exitOK     = 0 // all requested modules compiled or untouched
	exitError  = 1 // usage or configuration error
	exitFailed = 2 // one or more modules failed or went missing
)

const usage = `mibc - SMI MIB compiler

Usage:
  mibc [options] MIB ...

Options:
  -s, --source SPEC      MIB source; repeatable. SPEC is a directory,
                         tree:DIR (recursive), zip:FILE, or an http(s)
                         URL containing @mib@
  -d, --destination DIR  artifact output directory (default "mibs")
      --database FILE    store artifacts in a SQLite database instead
  -b, --borrow SPEC      precompiled artifact source for borrowing; repeatable
      --stub NAME        treat module NAME as always fresh; repeatable
      --config FILE      YAML config declaring sources and options
      --format NAME      artifact format: json or null (default json)
      --rebuild          ignore existing artifacts, recompile everything
      --no-deps          do not compile modules pulled in as imports
      --ignore-errors    store whatever compiled even if other modules failed
      --dry-run          report success without persisting anything
      --no-write         run the pipeline but skip the store phase
      --gen-texts        include DESCRIPTION texts in artifacts
      --index            also build the aggregate index artifact
      --watch            recompile when source directories change
      --system-paths     append net-snmp/libsmi MIB directories as sources
  -v, --verbose          enable debug logging
  -vv                    enable trace logging (implies -v)
  -h, --help             show help

Examples:
  mibc -s /usr/share/snmp/mibs -d ./compiled IF-MIB IP-MIB
  mibc -s tree:./mibs -s https://mibs.pysnmp.com/asn1/@mib@ --index IF-MIB
  mibc --config mibc.yaml --rebuild
`

type cli struct {
	sources      []string
	destination  string
	database     string
	borrow       []string
	stubs        []string
	configFile   string
	format       string
	rebuild      bool
	noDeps       bool
	ignoreErrors bool
	dryRun       bool
	noWrite      bool
	genTexts     bool
	index        bool
	watch        bool
	systemPaths  bool
	verbose      int
	helpFlag     bool
	modules      []string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	c, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	if c.helpFlag {
		fmt.Fprint(os.Stdout, usage)
		return exitOK
	}

	if c.configFile != "" {
		if err := applyConfig(&c, c.configFile); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitError
		}
	}

	if len(c.modules) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return exitError
	}
	if c.destination == "" {
		c.destination = "mibs"
	}
	if c.format == "" {
		c.format = "json"
	}

	logger := makeLogger(c.verbose)
	ctx := context.Background()

	compiler, cleanup, err := buildCompiler(c, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	defer cleanup()

	code := compileOnce(ctx, compiler, c)
	if !c.watch {
		return code
	}

	err = watchAndRecompile(ctx, c.sources, logger, func() {
		compileOnce(ctx, compiler, c)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}

func parseArgs(args []string) (cli, error) {
	var c cli
	for i := 0; i < len(args); i++ {
		arg := args[i]

		takeValue := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		var v string
		switch {
		case arg == "-h" || arg == "--help":
			c.helpFlag = true
		case arg == "-v" || arg == "--verbose":
			if c.verbose < 1 {
				c.verbose = 1
			}
		case arg == "-vv":
			c.verbose = 2
		case arg == "-s" || arg == "--source":
			if v, err = takeValue(); err == nil {
				c.sources = append(c.sources, v)
			}
		case strings.HasPrefix(arg, "--source="):
			c.sources = append(c.sources, arg[len("--source="):])
		case arg == "-d" || arg == "--destination":
			v, err = takeValue()
			c.destination = v
		case strings.HasPrefix(arg, "--destination="):
			c.destination = arg[len("--destination="):]
		case arg == "--database":
			v, err = takeValue()
			c.database = v
		case arg == "-b" || arg == "--borrow":
			if v, err = takeValue(); err == nil {
				c.borrow = append(c.borrow, v)
			}
		case arg == "--stub":
			if v, err = takeValue(); err == nil {
				c.stubs = append(c.stubs, v)
			}
		case arg == "--config":
			v, err = takeValue()
			c.configFile = v
		case arg == "--format":
			v, err = takeValue()
			c.format = v
		case arg == "--rebuild":
			c.rebuild = true
		case arg == "--no-deps":
			c.noDeps = true
		case arg == "--ignore-errors":
			c.ignoreErrors = true
		case arg == "--dry-run":
			c.dryRun = true
		case arg == "--no-write":
			c.noWrite = true
		case arg == "--gen-texts":
			c.genTexts = true
		case arg == "--index":
			c.index = true
		case arg == "--watch":
			c.watch = true
		case arg == "--system-paths":
			c.systemPaths = true
		case len(arg) > 0 && arg[0] == '-':
			return c, fmt.Errorf("unknown option %s", arg)
		default:
			c.modules = append(c.modules, arg)
		}
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func makeLogger(verbose int) *slog.Logger {
	if verbose == 0 {
		return nil
	}
	level := slog.LevelDebug
	if verbose >= 2 {
		level = mibc.LevelTrace
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildCompiler assembles the compiler from CLI settings. The returned
// cleanup closes any database handle.
func buildCompiler(c cli, logger *slog.Logger) (*mibc.Compiler, func(), error) {
	cleanup := func() {}

	var codegen mibc.CodeGenerator
	switch c.format {
	case "json":
		codegen = &mibc.JSONGenerator{}
	case "null":
		codegen = &mibc.NullGenerator{}
	default:
		return nil, cleanup, fmt.Errorf("unknown format %q", c.format)
	}

	var writer mibc.Writer
	var searchers []mibc.Searcher
	if c.database != "" {
		db, err := sql.Open("sqlite3", c.database)
		if err != nil {
			return nil, cleanup, fmt.Errorf("opening database %s: %w", c.database, err)
		}
		store, err := mibc.NewDBStore(db)
		if err != nil {
			_ = db.Close()
			return nil, cleanup, err
		}
		cleanup = func() { _ = db.Close() }
		writer = store
		searchers = append(searchers, store)
	} else {
		suffix := ".json"
		if c.format == "null" {
			suffix = ""
		}
		writer = mibc.FileWriter(c.destination, suffix)
		searchers = append(searchers, mibc.FileSearcher(c.destination, suffix))
	}
	if len(c.stubs) > 0 {
		// Stubs go first so base modules never hit the artifact store.
		searchers = append([]mibc.Searcher{mibc.StubSearcher(c.stubs...)}, searchers...)
	}

	compiler := mibc.New(mibc.ParserFunc(smi.Parse), codegen, writer, mibc.WithLogger(logger))

	for _, spec := range c.sources {
		src, err := makeSource(spec)
		if err != nil {
			return nil, cleanup, err
		}
		compiler.AddSources(src)
	}
	if c.systemPaths {
		compiler.AddSources(mibc.SystemSources(logger)...)
	}
	compiler.AddSearchers(searchers...)

	for _, spec := range c.borrow {
		src, err := makeSource(spec)
		if err != nil {
			return nil, cleanup, err
		}
		compiler.AddBorrowers(mibc.SourceBorrower(src))
	}

	return compiler, cleanup, nil
}

// makeSource interprets a source spec: a directory path, tree:DIR,
// zip:FILE, or an http(s) URL template.
func makeSource(spec string) (mibc.Source, error) {
	switch {
	case strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://"):
		return mibc.HTTP(spec)
	case strings.HasPrefix(spec, "tree:"):
		return mibc.DirTree(strings.TrimPrefix(spec, "tree:"))
	case strings.HasPrefix(spec, "zip:"):
		return mibc.Zip(strings.TrimPrefix(spec, "zip:"))
	case strings.HasSuffix(spec, ".zip"):
		return mibc.Zip(spec)
	default:
		return mibc.Dir(spec)
	}
}

func compileOptions(c cli) []mibc.CompileOption {
	var opts []mibc.CompileOption
	if c.rebuild {
		opts = append(opts, mibc.WithRebuild())
	}
	if c.noDeps {
		opts = append(opts, mibc.WithNoDeps())
	}
	if c.ignoreErrors {
		opts = append(opts, mibc.WithIgnoreErrors())
	}
	if c.dryRun {
		opts = append(opts, mibc.WithDryRun())
	}
	if c.noWrite {
		opts = append(opts, mibc.WithoutWrite())
	}
	if c.genTexts {
		opts = append(opts, mibc.WithGenOptions(mibc.GenOptions{GenTexts: true}))
	}
	return opts
}

func compileOnce(ctx context.Context, compiler *mibc.Compiler, c cli) int {
	results, err := compiler.Compile(ctx, c.modules, compileOptions(c)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	printResults(results)

	if c.index {
		var opts []mibc.CompileOption
		if c.ignoreErrors {
			opts = append(opts, mibc.WithIgnoreErrors())
		}
		if c.dryRun {
			opts = append(opts, mibc.WithDryRun())
		}
		if err := compiler.BuildIndex(results, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitError
		}
	}

	if results.Failed() {
		return exitFailed
	}
	return exitOK
}

func printResults(results mibc.Results) {
	for _, status := range []mibc.Status{
		mibc.StatusCompiled, mibc.StatusBorrowed, mibc.StatusUntouched,
		mibc.StatusUnprocessed, mibc.StatusMissing, mibc.StatusFailed,
	} {
		for _, name := range results.WithStatus(status) {
			outcome := results[name]
			switch status {
			case mibc.StatusFailed:
				fmt.Printf("%-12s %s: %v\n", status, name, outcome.Err)
			case mibc.StatusCompiled, mibc.StatusBorrowed:
				fmt.Printf("%-12s %s (%s)\n", status, name, outcome.Path)
			default:
				fmt.Printf("%-12s %s\n", status, name)
			}
		}
	}
}
