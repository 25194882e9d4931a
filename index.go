package mibc

import (
	"fmt"
	"log/slog"
)

// BuildIndex aggregates the outcome mapping of a Compile run into a
// single manifest artifact and stores it under IndexName. A previously
// stored index is loaded best-effort and merged so the manifest grows
// across incremental runs.
//
// Index errors are reported to the caller, distinct from per-module
// failures; ignoreErrors suppresses them the same way it suppresses the
// global abort in Compile.
func (c *Compiler) BuildIndex(processed Results, opts ...CompileOption) error {
	cfg := defaultCompileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	comments := c.provenance.Comments("")
	data, err := c.codegen.GenerateIndex(processed, comments, c.writer.Load(IndexName))
	if err == nil && data != nil {
		err = c.writer.Store(IndexName, data, comments, cfg.dryRun)
	}
	if err != nil {
		if logEnabled(c.logger, slog.LevelDebug) {
			c.logger.Debug("index build failed", slog.Any("error", err))
		}
		if cfg.ignoreErrors {
			return nil
		}
		return fmt.Errorf("building index %s: %w", IndexName, err)
	}
	return nil
}
