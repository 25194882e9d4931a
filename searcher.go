package mibc

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// fileSearcher checks a directory of compiled artifacts for freshness
// by comparing file modification times against the module source.
type fileSearcher struct {
	path   string
	suffix string
}

// FileSearcher creates a Searcher over a directory of compiled
// artifacts named <module><suffix>.
func FileSearcher(path, suffix string) Searcher {
	return &fileSearcher{path: path, suffix: suffix}
}

func (s *fileSearcher) String() string { return fmt.Sprintf("FileSearcher{%q}", s.path) }

func (s *fileSearcher) CheckFresh(name string, modTime time.Time, rebuild bool) error {
	if rebuild {
		// Pretend any existing artifact is very old.
		return fs.ErrNotExist
	}

	artifact := filepath.Join(s.path, name+s.suffix)
	fi, err := os.Stat(artifact)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.ErrNotExist
		}
		return fmt.Errorf("checking compiled file %s: %w", artifact, err)
	}
	if fi.IsDir() {
		return fs.ErrNotExist
	}

	if !fi.ModTime().Before(modTime) {
		return ErrNotModified
	}
	return fs.ErrNotExist
}

// stubSearcher reports a fixed set of module names as always fresh.
// Useful for base modules whose compiled form ships with a target
// environment and never needs regeneration.
type stubSearcher struct {
	names map[string]struct{}
}

// StubSearcher creates a Searcher that treats the given modules as
// permanently up to date, regardless of the rebuild flag.
func StubSearcher(names ...string) Searcher {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &stubSearcher{names: set}
}

func (s *stubSearcher) String() string { return fmt.Sprintf("StubSearcher{%d modules}", len(s.names)) }

func (s *stubSearcher) CheckFresh(name string, modTime time.Time, rebuild bool) error {
	if _, ok := s.names[name]; ok {
		return ErrNotModified
	}
	return fs.ErrNotExist
}
