// Package config implements the Config contract spec.md §6 says ApiMap
// consumes: `calculated` (the workspace file list), `required` (declared
// library names), and `domains` (namespaces folded into top-level
// instance-method queries, spec.md §4.3 step 7). It is out of the core's
// scope (spec.md §1 "Out of scope"); this is the reference implementation
// the CLI and tests use.
//
// Project configuration is read from a `.apimap.kdl` file, the same KDL
// document format the donor codebase this package is modeled on uses for
// its own per-project config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/bmatcuk/doublestar/v4"

	apimaperrors "github.com/standardbeagle/apimap/internal/errors"
)

// Config is the contract ApiMap consumes.
type Config struct {
	Root     string
	Include  []string
	Exclude  []string
	Required []string
	Domains  []string

	// SourceSuffixes lists the file extensions virtualize() treats as
	// overlay-eligible (spec.md §4.1 step b).
	SourceSuffixes []string

	// ArchivePaths lists YardMap archive files to load, one per required
	// library plus the standard-library archive.
	ArchivePaths []string
}

// Default returns a Config with the donor project's own conservative
// defaults: every `.rb` file included, common build/vendor directories
// excluded.
func Default(root string) *Config {
	return &Config{
		Root:           root,
		Include:        []string{"**/*.rb"},
		Exclude:        defaultExclusions(),
		SourceSuffixes: []string{".rb"},
	}
}

func defaultExclusions() []string {
	return []string{
		"**/vendor/**", "**/node_modules/**", "**/.git/**",
		"**/tmp/**", "**/log/**", "**/coverage/**",
	}
}

// Load reads a `.apimap.kdl` file under root, if present, and overlays it
// on Default(root). A missing file is not an error: Default(root) is
// returned as-is, per the donor project's own "no KDL config found, use
// defaults" behavior.
func Load(root string) (*Config, error) {
	cfg := Default(root)
	path := filepath.Join(root, ".apimap.kdl")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, apimaperrors.NewConfigError("", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return cfg, apimaperrors.NewConfigError("", path, fmt.Errorf("parse .apimap.kdl: %w", err))
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "include":
			cfg.Include = append(cfg.Include, stringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, stringArgs(n)...)
		case "required":
			cfg.Required = append(cfg.Required, stringArgs(n)...)
		case "domains":
			cfg.Domains = append(cfg.Domains, stringArgs(n)...)
		case "archive":
			cfg.ArchivePaths = append(cfg.ArchivePaths, stringArgs(n)...)
		}
	}
	return cfg, nil
}

// Calculated computes the workspace file set: every file under Root whose
// relative path matches an Include pattern and no Exclude pattern,
// following doublestar's `**` glob semantics the way the donor project's
// own config layer does.
func (c *Config) Calculated() ([]string, error) {
	var out []string
	err := filepath.WalkDir(c.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // missing/unreadable entries are silently dropped, spec.md §7
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(c.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if c.excluded(rel) {
			return nil
		}
		if !c.included(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) included(rel string) bool {
	if len(c.Include) == 0 {
		return true
	}
	for _, pat := range c.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (c *Config) excluded(rel string) bool {
	for _, pat := range c.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// IsSourceFilename reports whether filename is overlay-eligible: either
// unnamed (the editor hasn't saved it yet) or ending in a recognized source
// suffix (spec.md §4.1 virtualize step b).
func (c *Config) IsSourceFilename(filename string) bool {
	if filename == "" {
		return true
	}
	for _, suf := range c.SourceSuffixes {
		if strings.HasSuffix(filename, suf) {
			return true
		}
	}
	return false
}
