package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ScanOptions configures the directory scanning behavior
type ScanOptions struct {
	// Names limits results to files with one of these basenames (empty = all files)
	Names []string
	// Recursive enables recursive directory scanning
	Recursive bool
	// ExcludeDirs is a list of directory names to exclude (e.g., "node_modules")
	ExcludeDirs []string
	// ExcludeGlobs are doublestar patterns matched against slash separated paths relative to the root
	ExcludeGlobs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched files
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ValidateGlobs reports the first malformed doublestar pattern.
func ValidateGlobs(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return nil
}

// MatchesAny reports whether the slash separated relative path matches any pattern.
// Patterns must have been checked with ValidateGlobs.
func MatchesAny(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if doublestar.MatchUnvalidated(pattern, relPath) {
			return true
		}
	}
	return false
}

// ScanDirectory scans a directory for files matching the provided options
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	if err := ValidateGlobs(opts.ExcludeGlobs); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	nameMap := make(map[string]bool, len(opts.Names))
	for _, name := range opts.Names {
		nameMap[name] = true
	}

	excludeMap := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excludeMap[d] = true
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}

		if path == dir {
			return nil
		}

		relPath, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to relativize %s: %w", path, relErr))
			return nil
		}

		if d.IsDir() {
			if excludeMap[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 {
				depth := strings.Count(relPath, string(filepath.Separator)) + 1
				if depth >= opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			if MatchesAny(opts.ExcludeGlobs, relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if len(nameMap) > 0 && !nameMap[d.Name()] {
			return nil
		}
		if MatchesAny(opts.ExcludeGlobs, relPath) {
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}

		result.Files = append(result.Files, absPath)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	// Sort files for consistent output
	sort.Strings(result.Files)

	return result, nil
}
