package mibc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/golangsnmp/mibc/internal/testutil"
	"github.com/golangsnmp/mibc/smi"
)

const (
	betaText = `BETA-MIB DEFINITIONS ::= BEGIN
betaRoot OBJECT IDENTIFIER ::= { enterprises 99 }
END
`
	alphaText = `ALPHA-MIB DEFINITIONS ::= BEGIN
IMPORTS betaRoot FROM BETA-MIB;
alphaRoot OBJECT IDENTIFIER ::= { betaRoot 1 }
END
`
)

// --- test doubles ---

type fakeSource struct {
	label   string
	modules map[string]string
	modTime time.Time
	err     error
	fetches map[string]int
}

func newFakeSource(label string, modules map[string]string) *fakeSource {
	return &fakeSource{
		label:   label,
		modules: modules,
		modTime: time.Now(),
		fetches: make(map[string]int),
	}
}

func (s *fakeSource) String() string { return "Fake{" + s.label + "}" }

func (s *fakeSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	s.fetches[name]++
	if s.err != nil {
		return nil, nil, s.err
	}
	text, ok := s.modules[name]
	if !ok {
		return nil, nil, fs.ErrNotExist
	}
	return &ModuleInfo{
		Name:    name,
		Path:    "fake://" + s.label + "/" + name,
		File:    name,
		ModTime: s.modTime,
	}, []byte(text), nil
}

type fakeSearcher struct {
	fresh map[string]bool
	err   error
}

func (s *fakeSearcher) String() string { return "FakeSearcher" }

func (s *fakeSearcher) CheckFresh(name string, modTime time.Time, rebuild bool) error {
	if s.err != nil {
		return s.err
	}
	if rebuild {
		return fs.ErrNotExist
	}
	if s.fresh[name] {
		return ErrNotModified
	}
	return fs.ErrNotExist
}

type fakeBorrower struct {
	artifacts map[string][]byte
	fetches   []string
}

func (b *fakeBorrower) String() string { return "FakeBorrower" }

func (b *fakeBorrower) Fetch(name string, opts GenOptions) (*ModuleInfo, []byte, error) {
	b.fetches = append(b.fetches, name)
	artifact, ok := b.artifacts[name]
	if !ok {
		return nil, nil, fs.ErrNotExist
	}
	return &ModuleInfo{
		Name:    name,
		Path:    "borrow://" + name,
		File:    name + ".json",
		ModTime: time.Now(),
	}, artifact, nil
}

type memWriter struct {
	stored  map[string][]byte
	failOn  map[string]bool
	stores  int
	dryRuns int
}

func newMemWriter() *memWriter {
	return &memWriter{
		stored: make(map[string][]byte),
		failOn: make(map[string]bool),
	}
}

func (w *memWriter) String() string { return "MemWriter" }

func (w *memWriter) Store(name string, artifact []byte, comments []string, dryRun bool) error {
	w.stores++
	if w.failOn[name] {
		return errors.New("store refused")
	}
	if dryRun {
		w.dryRuns++
		return nil
	}
	w.stored[name] = artifact
	return nil
}

func (w *memWriter) Load(name string) []byte { return w.stored[name] }

type countingGenerator struct {
	CodeGenerator
	calls int
}

func (g *countingGenerator) Generate(ast *smi.ModuleAST, symbols map[string]SymbolTable, comments []string, opts GenOptions) (*ModuleFacts, []byte, error) {
	g.calls++
	return g.CodeGenerator.Generate(ast, symbols, comments, opts)
}

func newTestCompiler(w Writer, opts ...Option) *Compiler {
	base := []Option{WithProvenance(StaticProvenance("test build"))}
	return New(ParserFunc(smi.Parse), &JSONGenerator{}, w, append(base, opts...)...)
}

// --- tests ---

func TestCompileSingleModuleWithImport(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, 2, len(results), "result entries")
	testutil.False(t, results.Failed(), "run should succeed")

	alpha := results["ALPHA-MIB"]
	testutil.Equal(t, StatusCompiled, alpha.Status, "alpha status")
	testutil.Equal(t, "fake://main/ALPHA-MIB", alpha.Path, "alpha path")
	testutil.Equal(t, "ALPHA-MIB", alpha.Alias, "alpha alias")
	testutil.Len(t, alpha.Imports, 1, "alpha imports")
	testutil.Equal(t, "BETA-MIB", alpha.Imports[0], "alpha import")

	beta := results["BETA-MIB"]
	testutil.Equal(t, StatusCompiled, beta.Status, "beta status")
	testutil.Equal(t, "betaRoot", beta.Enterprise, "beta enterprise node")

	testutil.Equal(t, 2, len(writer.stored), "stored artifacts")

	var doc struct {
		Module   string   `json:"module"`
		Comments []string `json:"comments"`
	}
	testutil.NoError(t, json.Unmarshal(writer.stored["ALPHA-MIB"], &doc), "artifact is JSON")
	testutil.Equal(t, "ALPHA-MIB", doc.Module, "artifact module name")
	testutil.Len(t, doc.Comments, 1, "provenance comments")
	testutil.Equal(t, "test build", doc.Comments[0], "provenance text")
}

func TestCompileResolvesDiamondOnce(t *testing.T) {
	src := newFakeSource("main", map[string]string{
		"A-MIB": `A-MIB DEFINITIONS ::= BEGIN
IMPORTS bRoot FROM B-MIB cRoot FROM C-MIB;
aRoot OBJECT IDENTIFIER ::= { bRoot 1 }
END
`,
		"B-MIB": `B-MIB DEFINITIONS ::= BEGIN
IMPORTS dRoot FROM D-MIB;
bRoot OBJECT IDENTIFIER ::= { dRoot 1 }
END
`,
		"C-MIB": `C-MIB DEFINITIONS ::= BEGIN
IMPORTS dRoot FROM D-MIB;
cRoot OBJECT IDENTIFIER ::= { dRoot 2 }
END
`,
		"D-MIB": `D-MIB DEFINITIONS ::= BEGIN
dRoot OBJECT IDENTIFIER ::= { enterprises 7 }
END
`,
	})

	c := newTestCompiler(newMemWriter())
	c.AddSources(src)

	// Requesting a module twice must not refetch it either.
	results, err := c.Compile(context.Background(), []string{"A-MIB", "A-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, 4, len(results), "result entries")
	testutil.Equal(t, 1, src.fetches["D-MIB"], "shared import fetched once")
	testutil.Equal(t, 1, src.fetches["A-MIB"], "requested module fetched once")
	for _, name := range []string{"A-MIB", "B-MIB", "C-MIB", "D-MIB"} {
		testutil.Equal(t, StatusCompiled, results[name].Status, "status of %s", name)
	}
}

func TestCompileMissingAbortsRun(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB", "NO-SUCH-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.True(t, results.Failed(), "missing module fails the run")

	testutil.Equal(t, StatusMissing, results["NO-SUCH-MIB"].Status, "missing status")
	testutil.Equal(t, StatusUnprocessed, results["ALPHA-MIB"].Status, "built work withheld")
	testutil.Equal(t, StatusUnprocessed, results["BETA-MIB"].Status, "built work withheld")
	testutil.Equal(t, 0, len(writer.stored), "nothing stored on abort")
}

func TestCompileIgnoreErrorsStoresSurvivors(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB", "NO-SUCH-MIB"}, WithIgnoreErrors())
	testutil.NoError(t, err, "compile")

	testutil.Equal(t, StatusMissing, results["NO-SUCH-MIB"].Status, "missing status")
	testutil.Equal(t, StatusCompiled, results["ALPHA-MIB"].Status, "survivor stored")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "survivor stored")
	testutil.Equal(t, 2, len(writer.stored), "survivors stored")
}

func TestCompileNoSources(t *testing.T) {
	c := newTestCompiler(newMemWriter())
	_, err := c.Compile(context.Background(), []string{"ANY-MIB"})
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestCompileParseFailure(t *testing.T) {
	c := newTestCompiler(newMemWriter())
	c.AddSources(newFakeSource("main", map[string]string{
		"BAD-MIB": "garbage that is not a module",
	}))

	results, err := c.Compile(context.Background(), []string{"BAD-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusFailed, results["BAD-MIB"].Status, "parse failure status")

	var cerr *Error
	if !errors.As(results["BAD-MIB"].Err, &cerr) {
		t.Fatalf("expected *Error, got %T", results["BAD-MIB"].Err)
	}
	testutil.Equal(t, "BAD-MIB", cerr.Module, "error module field")
	testutil.True(t, cerr.Line > 0, "parse errors carry a line")
}

func TestCompileDuplicateSymbolFails(t *testing.T) {
	c := newTestCompiler(newMemWriter())
	c.AddSources(newFakeSource("main", map[string]string{
		"DUP-MIB": `DUP-MIB DEFINITIONS ::= BEGIN
dupNode OBJECT IDENTIFIER ::= { enterprises 1 }
dupNode OBJECT IDENTIFIER ::= { enterprises 2 }
END
`,
	}))

	results, err := c.Compile(context.Background(), []string{"DUP-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusFailed, results["DUP-MIB"].Status, "duplicate symbol status")
	testutil.Contains(t, results["DUP-MIB"].Err.Error(), "duplicate symbol", "error message")
}

func TestCompileFreshnessShortCircuit(t *testing.T) {
	writer := newMemWriter()
	gen := &countingGenerator{CodeGenerator: &JSONGenerator{}}
	c := New(ParserFunc(smi.Parse), gen, writer, WithProvenance(StaticProvenance()))
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))
	c.AddSearchers(&fakeSearcher{fresh: map[string]bool{"ALPHA-MIB": true, "BETA-MIB": true}})

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusUntouched, results["ALPHA-MIB"].Status, "fresh module untouched")
	testutil.Equal(t, StatusUntouched, results["BETA-MIB"].Status, "fresh import untouched")
	testutil.Equal(t, 0, gen.calls, "codegen never invoked for fresh modules")
	testutil.Equal(t, 0, writer.stores, "nothing stored for fresh modules")
}

func TestCompileRebuildIgnoresFreshness(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))
	c.AddSearchers(&fakeSearcher{fresh: map[string]bool{"BETA-MIB": true}})

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"}, WithRebuild())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "rebuild recompiles")
	testutil.Equal(t, 1, len(writer.stored), "artifact stored")
}

func TestCompileStubSearcherDefeatsRebuild(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))
	c.AddSearchers(StubSearcher("BETA-MIB"))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"}, WithRebuild())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusUntouched, results["BETA-MIB"].Status, "stubbed module stays untouched")
	testutil.Equal(t, StatusCompiled, results["ALPHA-MIB"].Status, "non-stubbed module recompiled")
}

func TestCompileAdvisorySearcherErrorFallsThrough(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))
	c.AddSearchers(
		&fakeSearcher{err: errors.New("searcher backend down")},
		&fakeSearcher{fresh: map[string]bool{"BETA-MIB": true}},
	)

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusUntouched, results["BETA-MIB"].Status, "second searcher consulted")
}

func TestCompileNoDepsExcludesImports(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"}, WithNoDeps())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["ALPHA-MIB"].Status, "requested module compiled")
	testutil.Equal(t, StatusUntouched, results["BETA-MIB"].Status, "import excluded")
	testutil.Equal(t, 1, len(writer.stored), "only the requested module stored")
}

func TestCompileNoDepsKeepsRequestedModules(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB", "BETA-MIB"}, WithNoDeps())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["ALPHA-MIB"].Status, "requested module compiled")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "explicitly requested import compiled")
}

func TestCompileSubstantiveSourceErrorStops(t *testing.T) {
	broken := newFakeSource("broken", nil)
	broken.err = errors.New("disk on fire")
	backup := newFakeSource("backup", map[string]string{"BETA-MIB": betaText})

	c := newTestCompiler(newMemWriter())
	c.AddSources(broken, backup)

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusFailed, results["BETA-MIB"].Status, "substantive error fails the module")
	testutil.Equal(t, 0, backup.fetches["BETA-MIB"], "later sources not tried after substantive error")
	testutil.Contains(t, results["BETA-MIB"].Err.Error(), "disk on fire", "error preserved")
}

func TestCompileSourceOrdering(t *testing.T) {
	first := newFakeSource("first", map[string]string{"BETA-MIB": betaText})
	second := newFakeSource("second", map[string]string{"BETA-MIB": betaText})

	c := newTestCompiler(newMemWriter())
	c.AddSources(first, second)

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, "fake://first/BETA-MIB", results["BETA-MIB"].Path, "first source wins")
	testutil.Equal(t, 0, second.fetches["BETA-MIB"], "second source never consulted")
}

func TestCompileNotFoundFallsThroughSources(t *testing.T) {
	empty := newFakeSource("empty", nil)
	full := newFakeSource("full", map[string]string{"BETA-MIB": betaText})

	c := newTestCompiler(newMemWriter())
	c.AddSources(empty, full)

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "found in second source")
	testutil.Equal(t, "fake://full/BETA-MIB", results["BETA-MIB"].Path, "second source path")
}

func TestCompileBorrowRescuesMissingModule(t *testing.T) {
	writer := newMemWriter()
	artifact := []byte(`{"module":"BETA-MIB"}`)

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"ALPHA-MIB": alphaText}))
	c.AddBorrowers(&fakeBorrower{artifacts: map[string][]byte{"BETA-MIB": artifact}})

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.False(t, results.Failed(), "borrow rescues the run")

	beta := results["BETA-MIB"]
	testutil.Equal(t, StatusBorrowed, beta.Status, "borrowed status")
	testutil.Equal(t, "borrow://BETA-MIB", beta.Path, "borrowed provenance path")
	testutil.True(t, bytes.Equal(writer.stored["BETA-MIB"], artifact), "borrowed artifact stored verbatim")
	testutil.Equal(t, StatusCompiled, results["ALPHA-MIB"].Status, "dependent module compiled")
}

func TestCompileBorrowedFreshnessCheck(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"ALPHA-MIB": alphaText}))
	c.AddSearchers(&fakeSearcher{fresh: map[string]bool{"BETA-MIB": true}})
	c.AddBorrowers(&fakeBorrower{artifacts: map[string][]byte{"BETA-MIB": []byte("{}")}})

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusUntouched, results["BETA-MIB"].Status, "fresh borrowed module untouched")
	if _, stored := writer.stored["BETA-MIB"]; stored {
		t.Fatal("fresh borrowed artifact must not be rewritten")
	}
}

func TestCompileBorrowerOrdering(t *testing.T) {
	first := &fakeBorrower{}
	second := &fakeBorrower{artifacts: map[string][]byte{"GONE-MIB": []byte("{}")}}

	c := newTestCompiler(newMemWriter())
	c.AddSources(newFakeSource("empty", nil))
	c.AddBorrowers(first, second)

	results, err := c.Compile(context.Background(), []string{"GONE-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusBorrowed, results["GONE-MIB"].Status, "second borrower supplies the artifact")
	testutil.Len(t, first.fetches, 1, "first borrower tried")
}

const gammaText = `GAMMA-MIB DEFINITIONS ::= BEGIN
IMPORTS noSuchSymbol FROM BETA-MIB;
gammaRoot OBJECT IDENTIFIER ::= { noSuchSymbol 1 }
END
`

func TestCompileGenerateFailure(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"GAMMA-MIB": gammaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"GAMMA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.True(t, results.Failed(), "generation failure fails the run")

	gamma := results["GAMMA-MIB"]
	testutil.Equal(t, StatusFailed, gamma.Status, "generation failure status")
	testutil.Contains(t, gamma.Err.Error(), "no symbol BETA-MIB::noSuchSymbol", "generator error preserved")

	var cerr *Error
	if !errors.As(gamma.Err, &cerr) {
		t.Fatalf("expected *Error, got %T", gamma.Err)
	}
	testutil.Equal(t, "GAMMA-MIB", cerr.Module, "error module field")

	testutil.Equal(t, StatusUnprocessed, results["BETA-MIB"].Status, "built work withheld")
	testutil.Equal(t, 0, len(writer.stored), "nothing stored on abort")
}

func TestCompileBorrowRescuesGenerateFailure(t *testing.T) {
	writer := newMemWriter()
	artifact := []byte(`{"module":"GAMMA-MIB"}`)

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"GAMMA-MIB": gammaText,
		"BETA-MIB":  betaText,
	}))
	c.AddBorrowers(&fakeBorrower{artifacts: map[string][]byte{"GAMMA-MIB": artifact}})

	results, err := c.Compile(context.Background(), []string{"GAMMA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.False(t, results.Failed(), "borrow rescues the generation failure")

	gamma := results["GAMMA-MIB"]
	testutil.Equal(t, StatusBorrowed, gamma.Status, "borrowed status")
	testutil.Equal(t, "borrow://GAMMA-MIB", gamma.Path, "borrowed provenance path")
	testutil.True(t, bytes.Equal(writer.stored["GAMMA-MIB"], artifact), "borrowed artifact stored verbatim")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "import still compiled from source")
}

func TestCompileWriteFailureDemotes(t *testing.T) {
	writer := newMemWriter()
	writer.failOn["ALPHA-MIB"] = true

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{
		"ALPHA-MIB": alphaText,
		"BETA-MIB":  betaText,
	}))

	results, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.True(t, results.Failed(), "write failure fails the run")
	testutil.Equal(t, StatusFailed, results["ALPHA-MIB"].Status, "write failure demotes the module")
	testutil.Contains(t, results["ALPHA-MIB"].Err.Error(), "store refused", "writer error preserved")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "other modules still stored")
}

func TestCompileWriteFailureDemotesBorrowed(t *testing.T) {
	writer := newMemWriter()
	writer.failOn["GONE-MIB"] = true

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("empty", nil))
	c.AddBorrowers(&fakeBorrower{artifacts: map[string][]byte{"GONE-MIB": []byte("{}")}})

	results, err := c.Compile(context.Background(), []string{"GONE-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.True(t, results.Failed(), "write failure fails the run")

	gone := results["GONE-MIB"]
	testutil.Equal(t, StatusFailed, gone.Status, "borrowed outcome replaced at store time")
	testutil.Contains(t, gone.Err.Error(), "store refused", "writer error preserved")
	testutil.Equal(t, 0, len(writer.stored), "nothing persisted")
}

func TestCompileDryRun(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"}, WithDryRun())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "dry run reports success")
	testutil.Equal(t, 1, writer.dryRuns, "writer saw the dry run")
	testutil.Equal(t, 0, len(writer.stored), "nothing persisted")
}

func TestCompileWithoutWrite(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"}, WithoutWrite())
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, StatusCompiled, results["BETA-MIB"].Status, "pipeline still runs")
	testutil.Equal(t, 0, writer.stores, "store phase skipped entirely")
}

func TestCompileMultiModuleBlob(t *testing.T) {
	blob := `MULTI-ONE DEFINITIONS ::= BEGIN
multiOneRoot OBJECT IDENTIFIER ::= { enterprises 4242 }
END
MULTI-TWO DEFINITIONS ::= BEGIN
IMPORTS multiOneRoot FROM MULTI-ONE;
multiTwoRoot OBJECT IDENTIFIER ::= { multiOneRoot 1 }
END
`
	writer := newMemWriter()
	src := newFakeSource("main", map[string]string{"MULTI": blob})

	c := newTestCompiler(writer)
	c.AddSources(src)

	results, err := c.Compile(context.Background(), []string{"MULTI"})
	testutil.NoError(t, err, "compile")
	testutil.Equal(t, 2, len(results), "outcomes keyed by canonical names")
	testutil.Equal(t, StatusCompiled, results["MULTI-ONE"].Status, "first declared module")
	testutil.Equal(t, StatusCompiled, results["MULTI-TWO"].Status, "second declared module")
	testutil.Equal(t, "MULTI", results["MULTI-ONE"].Alias, "requested alias recorded")
	testutil.Equal(t, 1, src.fetches["MULTI"], "blob fetched once")
	testutil.Equal(t, 0, src.fetches["MULTI-ONE"]+src.fetches["MULTI-TWO"], "declared modules satisfied from the blob")
}

func TestCompileAliasedModuleName(t *testing.T) {
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"OLD-NAME": betaText}))

	results, err := c.Compile(context.Background(), []string{"OLD-NAME"})
	testutil.NoError(t, err, "compile")

	if _, ok := results["OLD-NAME"]; ok {
		t.Fatal("results must be keyed by the canonical module name")
	}
	beta := results["BETA-MIB"]
	testutil.Equal(t, StatusCompiled, beta.Status, "aliased module compiled")
	testutil.Equal(t, "OLD-NAME", beta.Alias, "caller alias preserved")
}

func TestCompileLateDeclarationClearsMissing(t *testing.T) {
	// BETA-MIB has no source of its own, but the blob fetched under
	// HOST-MIB declares it; the missing outcome recorded first must not
	// survive the later declaration.
	writer := newMemWriter()
	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"HOST-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB", "HOST-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.False(t, results.Failed(), "late declaration clears the missing entry")

	testutil.Equal(t, 1, len(results), "one canonical outcome")
	beta := results["BETA-MIB"]
	testutil.Equal(t, StatusCompiled, beta.Status, "declared module compiled")
	testutil.Equal(t, "HOST-MIB", beta.Alias, "declaring alias recorded")
}

func TestCompileDeterministicArtifacts(t *testing.T) {
	run := func() map[string][]byte {
		writer := newMemWriter()
		c := newTestCompiler(writer)
		c.AddSources(newFakeSource("main", map[string]string{
			"ALPHA-MIB": alphaText,
			"BETA-MIB":  betaText,
		}))
		_, err := c.Compile(context.Background(), []string{"ALPHA-MIB"})
		testutil.NoError(t, err, "compile")
		return writer.stored
	}

	first := run()
	second := run()
	testutil.Equal(t, len(first), len(second), "same artifact set")
	for name, data := range first {
		testutil.True(t, bytes.Equal(data, second[name]), "artifact %s is deterministic", name)
	}
}

func TestCompileContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCompiler(newMemWriter())
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	_, err := c.Compile(ctx, []string{"BETA-MIB"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildIndexMergesPreviousRuns(t *testing.T) {
	writer := newMemWriter()
	old, err := json.Marshal(jsonIndex{Modules: map[string]jsonIndexEntry{
		"OLD-MIB": {Status: "compiled", OID: "enterprises.1"},
	}})
	testutil.NoError(t, err, "marshal old index")
	writer.stored[IndexName] = old

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.NoError(t, c.BuildIndex(results), "build index")

	var idx jsonIndex
	testutil.NoError(t, json.Unmarshal(writer.stored[IndexName], &idx), "index is JSON")
	testutil.Equal(t, 2, len(idx.Modules), "old and new entries merged")
	testutil.Equal(t, "compiled", idx.Modules["OLD-MIB"].Status, "old entry kept")
	testutil.Equal(t, "compiled", idx.Modules["BETA-MIB"].Status, "new entry added")
	testutil.Equal(t, "betaRoot", idx.Modules["BETA-MIB"].Enterprise, "facts carried into the index")
}

func TestBuildIndexStoreFailure(t *testing.T) {
	writer := newMemWriter()
	writer.failOn[IndexName] = true

	c := newTestCompiler(writer)
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")

	err = c.BuildIndex(results)
	testutil.Error(t, err, "index store failure surfaces")
	testutil.Contains(t, err.Error(), "building index", "error context")

	testutil.NoError(t, c.BuildIndex(results, WithIgnoreErrors()), "ignoreErrors suppresses index failures")
}

func TestBuildIndexNullGenerator(t *testing.T) {
	writer := newMemWriter()
	c := New(ParserFunc(smi.Parse), &NullGenerator{}, writer, WithProvenance(StaticProvenance()))
	c.AddSources(newFakeSource("main", map[string]string{"BETA-MIB": betaText}))

	results, err := c.Compile(context.Background(), []string{"BETA-MIB"})
	testutil.NoError(t, err, "compile")
	testutil.NoError(t, c.BuildIndex(results), "build index")
	if _, ok := writer.stored[IndexName]; ok {
		t.Fatal("null generator must not produce an index artifact")
	}
}
