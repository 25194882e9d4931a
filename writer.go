package mibc

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileWriter stores compiled artifacts as files in one directory,
// written atomically via a temp file and rename.
type fileWriter struct {
	path          string
	suffix        string
	commentPrefix string
}

// WriterOption configures a FileWriter.
type WriterOption func(*fileWriter)

// WithCommentPrefix makes the writer prepend the compiler's comment
// lines to stored artifacts, each prefixed with the given string
// (e.g. "-- " for ASN.1-flavored artifacts). Without it, comment lines
// are dropped; generators typically embed them in the artifact already.
func WithCommentPrefix(prefix string) WriterOption {
	return func(w *fileWriter) { w.commentPrefix = prefix }
}

// FileWriter creates a Writer persisting artifacts as
// <dir>/<module><suffix>.
func FileWriter(dir, suffix string, opts ...WriterOption) Writer {
	w := &fileWriter{path: dir, suffix: suffix}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *fileWriter) String() string { return fmt.Sprintf("FileWriter{%q}", w.path) }

func (w *fileWriter) Store(name string, artifact []byte, comments []string, dryRun bool) error {
	if dryRun {
		return nil
	}

	if err := os.MkdirAll(w.path, 0o755); err != nil {
		return fmt.Errorf("creating destination directory %s: %w", w.path, err)
	}

	if len(comments) > 0 && w.commentPrefix != "" {
		var banner []byte
		for _, line := range comments {
			banner = append(banner, w.commentPrefix...)
			banner = append(banner, line...)
			banner = append(banner, '\n')
		}
		artifact = append(banner, artifact...)
	}

	filename := filepath.Join(w.path, name+w.suffix)

	tmp, err := os.CreateTemp(w.path, ".mibc-*")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", w.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(artifact); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storing %s: %w", filename, err)
	}
	return nil
}

func (w *fileWriter) Load(name string) []byte {
	data, err := os.ReadFile(filepath.Join(w.path, name+w.suffix))
	if err != nil {
		return nil
	}
	return data
}

// callbackWriter hands artifacts to user functions instead of a medium.
type callbackWriter struct {
	store func(name string, artifact []byte, dryRun bool) error
	load  func(name string) []byte
}

// CallbackWriter creates a Writer delegating to the given functions.
// A nil load function makes Load always return nil.
func CallbackWriter(store func(name string, artifact []byte, dryRun bool) error, load func(name string) []byte) Writer {
	return &callbackWriter{store: store, load: load}
}

func (w *callbackWriter) String() string { return "CallbackWriter" }

func (w *callbackWriter) Store(name string, artifact []byte, comments []string, dryRun bool) error {
	return w.store(name, artifact, dryRun)
}

func (w *callbackWriter) Load(name string) []byte {
	if w.load == nil {
		return nil
	}
	return w.load(name)
}
