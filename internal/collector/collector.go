// Package collector harvests requirement records from test specification files.
//
// Collect walks each base directory through a vcs.Lister, parses every file
// whose basename is a spec filename, and gathers the direct children of the
// top-level block that declare a `requirement` field. `design` and `issues`
// are read per entry and fall back to the top-level block; when neither level
// declares them an error diagnostic is emitted and an empty list is used.
//
// Records are grouped by the first path segment of the spec file relative to
// the directory being scanned, and labeled F<group>.<item> once every
// directory has been processed. Collection is strictly sequential so group
// and item order always follow traversal order.
package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/reqtrace/internal/fileutil"
	"github.com/harrison/reqtrace/internal/hit"
	"github.com/harrison/reqtrace/internal/models"
	"github.com/harrison/reqtrace/internal/vcs"
)

// Diagnostic formats for attributes missing at both the top level and the entry.
const (
	MissingDesignFormat = "The 'design' parameter is missing from '%s' in %s. It must be defined at " +
		"the top level and/or within the individual test specification. It " +
		"should contain a space separated list of filenames."
	MissingIssuesFormat = "The 'issues' parameter is missing from '%s' in %s. It must be defined at " +
		"the top level and/or within the individual test specification. It " +
		"should contain a space separated list of issue numbers (include the #)."
)

// Parser turns a spec file into a hit tree.
type Parser interface {
	ParseFile(path string) (*hit.Node, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path string) (*hit.Node, error)

// ParseFile calls f(path).
func (f ParserFunc) ParseFile(path string) (*hit.Node, error) {
	return f(path)
}

// Diagnostics receives non-fatal messages produced during collection.
type Diagnostics interface {
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Option configures a Collector.
type Option func(*Collector)

// WithExcludes skips listed files whose path relative to the scanned
// directory matches any doublestar pattern.
func WithExcludes(patterns []string) Option {
	return func(c *Collector) {
		c.excludes = append(c.excludes, patterns...)
	}
}

// WithGroupRoot computes group keys relative to root instead of the
// directory being scanned. Spec files outside root are an error.
func WithGroupRoot(root string) Option {
	return func(c *Collector) {
		c.groupRoot = root
	}
}

// WithDirectoryHook calls fn before each directory is listed.
func WithDirectoryHook(fn func(dir string)) Option {
	return func(c *Collector) {
		c.onDirectory = fn
	}
}

// Collector gathers requirements from spec files.
type Collector struct {
	lister      vcs.Lister
	parser      Parser
	diag        Diagnostics
	excludes    []string
	groupRoot   string
	onDirectory func(dir string)
}

// New creates a Collector. A nil parser defaults to hit.ParseFile.
func New(lister vcs.Lister, parser Parser, diag Diagnostics, opts ...Option) (*Collector, error) {
	if lister == nil {
		return nil, fmt.Errorf("collector requires a file lister")
	}
	if diag == nil {
		return nil, fmt.Errorf("collector requires a diagnostics sink")
	}
	if parser == nil {
		parser = ParserFunc(hit.ParseFile)
	}

	c := &Collector{
		lister: lister,
		parser: parser,
		diag:   diag,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := fileutil.ValidateGlobs(c.excludes); err != nil {
		return nil, fmt.Errorf("invalid exclude: %w", err)
	}
	return c, nil
}

// Collect scans directories in order and returns the labeled requirement groups.
//
// On a listing or parse failure the error is returned together with the
// groups collected so far; those groups are not labeled.
func (c *Collector) Collect(ctx context.Context, directories []string, specFilenames []string) (*models.Groups, error) {
	specs := make(map[string]bool, len(specFilenames))
	for _, name := range specFilenames {
		specs[name] = true
	}

	groups := models.NewGroups()
	for _, dir := range directories {
		c.diag.Debugf("scanning %s", dir)
		if c.onDirectory != nil {
			c.onDirectory(dir)
		}

		files, err := c.lister.ListFiles(ctx, dir)
		if err != nil {
			return groups, err
		}

		for _, path := range files {
			if !isRegularFile(path) {
				continue
			}
			if !specs[filepath.Base(path)] {
				continue
			}
			if c.excluded(dir, path) {
				c.diag.Debugf("excluded %s", path)
				continue
			}
			if err := c.extract(groups, dir, path); err != nil {
				return groups, err
			}
		}
	}

	groups.AssignLabels()
	c.diag.Debugf("collected %d requirements in %d groups", groups.Count(), groups.Len())
	return groups, nil
}

// extract parses specFile and appends its requirements to groups. baseDir is
// the directory currently being scanned.
func (c *Collector) extract(groups *models.Groups, baseDir, specFile string) error {
	c.diag.Debugf("parsing %s", specFile)

	root, err := c.parser.ParseFile(specFile)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", specFile, err)
	}
	top, err := root.TopLevel()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", specFile, err)
	}

	design, hasDesign := top.Get("design")
	issues, hasIssues := top.Get("issues")

	path, err := filepath.Rel(baseDir, filepath.Dir(specFile))
	if err != nil {
		return fmt.Errorf("failed to relativize %s: %w", specFile, err)
	}
	groupBase := baseDir
	if c.groupRoot != "" {
		groupBase = c.groupRoot
	}
	group, err := groupKey(groupBase, specFile)
	if err != nil {
		return err
	}

	for _, child := range top.Children() {
		if !child.Has("requirement") {
			continue
		}

		localDesign, ok := lookup(child, "design", design, hasDesign)
		if !ok {
			c.diag.Errorf(MissingDesignFormat, child.Name(), specFile)
		}
		localIssues, ok := lookup(child, "issues", issues, hasIssues)
		if !ok {
			c.diag.Errorf(MissingIssuesFormat, child.Name(), specFile)
		}

		text, _ := child.Get("requirement")
		req := models.NewRequirement(child.Name(), path, specFile, text, localDesign, localIssues)
		if err := groups.Append(group, req); err != nil {
			return err
		}
	}
	return nil
}

// lookup returns the entry's own value, else the top-level default. ok is
// false when neither level declares key; the value is then "".
func lookup(child *hit.Node, key, def string, hasDef bool) (string, bool) {
	if v, ok := child.Get(key); ok {
		return v, true
	}
	if hasDef {
		return def, true
	}
	return "", false
}

// groupKey is the first path segment of specFile relative to base.
func groupKey(base, specFile string) (string, error) {
	rel, err := filepath.Rel(base, specFile)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", specFile, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("spec file %s is outside group root %s", specFile, base)
	}
	return strings.SplitN(rel, "/", 2)[0], nil
}

func (c *Collector) excluded(baseDir, path string) bool {
	if len(c.excludes) == 0 {
		return false
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return false
	}
	return fileutil.MatchesAny(c.excludes, rel)
}

// isRegularFile treats any stat failure as "not a file".
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
