package mibc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golangsnmp/mibc/internal/testutil"
)

func TestFileWriterStoreAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "mibs")
	w := FileWriter(dir, ".json")

	testutil.NoError(t, w.Store("FOO-MIB", []byte(`{"module":"FOO-MIB"}`), nil, false), "store")

	data, err := os.ReadFile(filepath.Join(dir, "FOO-MIB.json"))
	testutil.NoError(t, err, "artifact file exists")
	testutil.Equal(t, `{"module":"FOO-MIB"}`, string(data), "content")

	testutil.Equal(t, `{"module":"FOO-MIB"}`, string(w.Load("FOO-MIB")), "load round trip")
	if w.Load("NO-SUCH") != nil {
		t.Fatal("load of absent artifact must return nil")
	}

	// Overwrites replace atomically, leaving no temp files behind.
	testutil.NoError(t, w.Store("FOO-MIB", []byte("v2"), nil, false), "overwrite")
	testutil.Equal(t, "v2", string(w.Load("FOO-MIB")), "overwritten content")

	entries, err := os.ReadDir(dir)
	testutil.NoError(t, err, "read dir")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".mibc-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileWriterDryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	w := FileWriter(dir, ".json")

	testutil.NoError(t, w.Store("FOO-MIB", []byte("{}"), nil, true), "dry run store")

	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not create the destination directory")
	}
}

func TestFileWriterCommentPrefix(t *testing.T) {
	dir := t.TempDir()
	w := FileWriter(dir, ".txt", WithCommentPrefix("-- "))

	comments := []string{"first line", "second line"}
	testutil.NoError(t, w.Store("FOO-MIB", []byte("body\n"), comments, false), "store")

	data, err := os.ReadFile(filepath.Join(dir, "FOO-MIB.txt"))
	testutil.NoError(t, err, "read artifact")
	testutil.Equal(t, "-- first line\n-- second line\nbody\n", string(data), "comment banner")
}

func TestFileWriterDropsCommentsWithoutPrefix(t *testing.T) {
	dir := t.TempDir()
	w := FileWriter(dir, ".txt")

	testutil.NoError(t, w.Store("FOO-MIB", []byte("body"), []string{"ignored"}, false), "store")
	testutil.Equal(t, "body", string(w.Load("FOO-MIB")), "comments dropped")
}

func TestCallbackWriter(t *testing.T) {
	var gotName string
	var gotArtifact []byte
	var gotDryRun bool

	w := CallbackWriter(
		func(name string, artifact []byte, dryRun bool) error {
			gotName, gotArtifact, gotDryRun = name, artifact, dryRun
			return nil
		},
		func(name string) []byte {
			if name == "FOO-MIB" {
				return []byte("loaded")
			}
			return nil
		},
	)

	testutil.NoError(t, w.Store("FOO-MIB", []byte("stored"), nil, true), "store")
	testutil.Equal(t, "FOO-MIB", gotName, "name forwarded")
	testutil.Equal(t, "stored", string(gotArtifact), "artifact forwarded")
	testutil.True(t, gotDryRun, "dry run forwarded")

	testutil.Equal(t, "loaded", string(w.Load("FOO-MIB")), "load delegated")

	nilLoad := CallbackWriter(func(string, []byte, bool) error { return nil }, nil)
	if nilLoad.Load("ANY") != nil {
		t.Fatal("nil load function must return nil")
	}
}
