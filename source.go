package mibc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultExtensions are the file extensions recognized as MIB files.
// Empty string matches files with no extension (e.g., "IF-MIB").
var DefaultExtensions = []string{"", ".mib", ".smi", ".txt", ".my"}

// maxModuleSize caps how much text a source will fetch for one module.
const maxModuleSize = 16 * 1024 * 1024

// SourceOption configures a source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	extensions []string
	timeout    time.Duration
}

func defaultSourceConfig() sourceConfig {
	return sourceConfig{
		extensions: DefaultExtensions,
		timeout:    30 * time.Second,
	}
}

// WithExtensions sets the file extensions to recognize for this source.
func WithExtensions(exts ...string) SourceOption {
	return func(c *sourceConfig) { c.extensions = exts }
}

// WithTimeout sets the per-fetch timeout for network-backed sources.
func WithTimeout(d time.Duration) SourceOption {
	return func(c *sourceConfig) { c.timeout = d }
}

// --- Dir source (single directory, lazy) ---

type dirSource struct {
	path   string
	config sourceConfig
}

// Dir creates a Source that searches a single directory (no recursion).
// Files are looked up lazily on each Fetch call, trying each configured
// extension in order.
func Dir(path string, opts ...SourceOption) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &dirSource{path: path, config: cfg}, nil
}

// MustDir is like Dir but panics on error.
func MustDir(path string, opts ...SourceOption) Source {
	src, err := Dir(path, opts...)
	if err != nil {
		panic(err)
	}
	return src
}

func (s *dirSource) String() string { return fmt.Sprintf("Dir{%q}", s.path) }

func (s *dirSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	for _, ext := range s.config.extensions {
		fullPath := filepath.Join(s.path, name+ext)
		fi, err := os.Stat(fullPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, err
		}
		if fi.IsDir() {
			continue
		}
		if fi.Size() > maxModuleSize {
			return nil, nil, fmt.Errorf("MIB %s too large (%d bytes)", fullPath, fi.Size())
		}
		text, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, nil, err
		}
		return &ModuleInfo{
			Name:    name,
			Path:    "file://" + fullPath,
			File:    filepath.Base(fullPath),
			ModTime: fi.ModTime(),
		}, text, nil
	}
	return nil, nil, fs.ErrNotExist
}

// --- DirTree source (recursive directory, indexed) ---

type treeSource struct {
	root   string
	index  map[string]string // module name -> file path
	config sourceConfig
}

// DirTree creates a Source that recursively indexes a directory tree.
// It walks the tree once at construction and builds a name->path index.
// First match wins for duplicate names.
func DirTree(root string, opts ...SourceOption) (Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: root, Err: os.ErrInvalid}
	}

	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	extSet := makeExtensionSet(cfg.extensions)
	index := make(map[string]string)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !hasValidExtension(path, extSet) {
			return nil
		}

		name := moduleNameFromPath(path)
		if _, exists := index[name]; !exists {
			index[name] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &treeSource{root: root, index: index, config: cfg}, nil
}

// MustDirTree is like DirTree but panics on error.
func MustDirTree(root string, opts ...SourceOption) Source {
	src, err := DirTree(root, opts...)
	if err != nil {
		panic(err)
	}
	return src
}

func (s *treeSource) String() string { return fmt.Sprintf("DirTree{%q}", s.root) }

func (s *treeSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	path, ok := s.index[name]
	if !ok {
		return nil, nil, fs.ErrNotExist
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return &ModuleInfo{
		Name:    name,
		Path:    "file://" + path,
		File:    filepath.Base(path),
		ModTime: fi.ModTime(),
	}, text, nil
}

// --- FS source (for embed.FS, testing, http filesystems) ---

type fsSource struct {
	name   string
	fsys   fs.FS
	config sourceConfig

	once  sync.Once
	index map[string]string
	err   error
}

// FS creates a Source backed by an fs.FS (e.g., embed.FS).
// The name is used for error messages and path reporting.
// It lazily indexes the filesystem on first Fetch call.
func FS(name string, fsys fs.FS, opts ...SourceOption) Source {
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &fsSource{name: name, fsys: fsys, config: cfg}
}

func (s *fsSource) String() string { return fmt.Sprintf("FS{%q}", s.name) }

func (s *fsSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	s.once.Do(func() {
		s.index, s.err = s.buildIndex()
	})
	if s.err != nil {
		return nil, nil, s.err
	}

	path, ok := s.index[name]
	if !ok {
		return nil, nil, fs.ErrNotExist
	}
	text, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return nil, nil, err
	}
	info := &ModuleInfo{
		Name: name,
		Path: s.name + ":" + path,
		File: filepath.Base(path),
	}
	if fi, err := fs.Stat(s.fsys, path); err == nil {
		info.ModTime = fi.ModTime()
	}
	return info, text, nil
}

func (s *fsSource) buildIndex() (map[string]string, error) {
	extSet := makeExtensionSet(s.config.extensions)
	index := make(map[string]string)

	err := fs.WalkDir(s.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !hasValidExtension(path, extSet) {
			return nil
		}

		name := moduleNameFromPath(path)
		if _, exists := index[name]; !exists {
			index[name] = path
		}
		return nil
	})
	return index, err
}

// --- HTTP source ---

type httpSource struct {
	urlTemplate string
	client      *http.Client
}

// HTTP creates a Source fetching MIB text over HTTP(S). The URL template
// must contain the placeholder "@mib@", replaced with the module name on
// each fetch, e.g. "https://mibs.example.org/asn1/@mib@".
func HTTP(urlTemplate string, opts ...SourceOption) (Source, error) {
	if !strings.Contains(urlTemplate, "@mib@") {
		return nil, fmt.Errorf("URL template %q lacks @mib@ placeholder", urlTemplate)
	}
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &httpSource{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: cfg.timeout},
	}, nil
}

func (s *httpSource) String() string { return fmt.Sprintf("HTTP{%q}", s.urlTemplate) }

func (s *httpSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	url := strings.ReplaceAll(s.urlTemplate, "@mib@", name)

	resp, err := s.client.Get(url)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // response body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, fs.ErrNotExist
	case resp.StatusCode != http.StatusOK:
		return nil, nil, fmt.Errorf("fetching %s: HTTP %s", url, resp.Status)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxModuleSize+1))
	if err != nil {
		return nil, nil, err
	}
	if len(text) > maxModuleSize {
		return nil, nil, fmt.Errorf("MIB %s too large", url)
	}

	modTime := time.Now()
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			modTime = t
		}
	}

	return &ModuleInfo{
		Name:    name,
		Path:    url,
		File:    name,
		ModTime: modTime,
	}, text, nil
}

// --- Zip source ---

type zipSource struct {
	path   string
	index  map[string]*zip.File
	closer io.Closer
}

// Zip creates a Source serving MIB files out of a ZIP archive, indexed
// by member base name once at construction.
func Zip(path string, opts ...SourceOption) (Source, error) {
	cfg := defaultSourceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}

	extSet := makeExtensionSet(cfg.extensions)
	index := make(map[string]*zip.File)
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !hasValidExtension(f.Name, extSet) {
			continue
		}
		name := moduleNameFromPath(f.Name)
		if _, exists := index[name]; !exists {
			index[name] = f
		}
	}

	return &zipSource{path: path, index: index, closer: rc}, nil
}

func (s *zipSource) String() string { return fmt.Sprintf("Zip{%q}", s.path) }

func (s *zipSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	f, ok := s.index[name]
	if !ok {
		return nil, nil, fs.ErrNotExist
	}
	rc, err := f.Open()
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close() //nolint:errcheck // archive member

	text, err := io.ReadAll(io.LimitReader(rc, maxModuleSize))
	if err != nil {
		return nil, nil, err
	}

	return &ModuleInfo{
		Name:    name,
		Path:    "zip://" + s.path + "#" + f.Name,
		File:    filepath.Base(f.Name),
		ModTime: f.Modified,
	}, text, nil
}

// Close releases the underlying archive handle.
func (s *zipSource) Close() error { return s.closer.Close() }

// --- Multi source (combines multiple sources) ---

type multiSource struct {
	sources []Source
}

// Multi combines multiple sources into one.
// Fetch tries each source in order, returning the first match;
// a substantive error from any source stops the search.
func Multi(sources ...Source) Source {
	return &multiSource{sources: sources}
}

func (s *multiSource) String() string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = describe(src)
	}
	return "Multi{" + strings.Join(names, ", ") + "}"
}

func (s *multiSource) Fetch(name string) (*ModuleInfo, []byte, error) {
	for _, src := range s.sources {
		info, text, err := src.Fetch(name)
		if err == nil {
			return info, text, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}
	return nil, nil, fs.ErrNotExist
}

// --- Helpers ---

func makeExtensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}

func hasValidExtension(path string, extSet map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := extSet[ext]
	return ok
}

func moduleNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
