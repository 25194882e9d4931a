package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the YAML shape accepted by --config. Command-line flags
// take precedence; list-valued settings from the file are appended
// after flag-provided ones.
type configFile struct {
	Sources     []string `yaml:"sources"`
	Destination string   `yaml:"destination"`
	Database    string   `yaml:"database"`
	Borrow      []string `yaml:"borrow"`
	Stubs       []string `yaml:"stubs"`
	Modules     []string `yaml:"modules"`

	Format       string `yaml:"format"`
	Rebuild      bool   `yaml:"rebuild"`
	NoDeps       bool   `yaml:"noDeps"`
	IgnoreErrors bool   `yaml:"ignoreErrors"`
	DryRun       bool   `yaml:"dryRun"`
	GenTexts     bool   `yaml:"genTexts"`
	Index        bool   `yaml:"index"`
	SystemPaths  bool   `yaml:"systemPaths"`
}

func applyConfig(c *cli, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	c.sources = append(c.sources, cfg.Sources...)
	c.borrow = append(c.borrow, cfg.Borrow...)
	c.stubs = append(c.stubs, cfg.Stubs...)
	c.modules = append(c.modules, cfg.Modules...)

	if c.destination == "" {
		c.destination = cfg.Destination
	}
	if c.database == "" {
		c.database = cfg.Database
	}
	if c.format == "" {
		c.format = cfg.Format
	}

	c.rebuild = c.rebuild || cfg.Rebuild
	c.noDeps = c.noDeps || cfg.NoDeps
	c.ignoreErrors = c.ignoreErrors || cfg.IgnoreErrors
	c.dryRun = c.dryRun || cfg.DryRun
	c.genTexts = c.genTexts || cfg.GenTexts
	c.index = c.index || cfg.Index
	c.systemPaths = c.systemPaths || cfg.SystemPaths

	return nil
}
