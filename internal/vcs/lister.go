// Package vcs enumerates the files of a source tree, preferring the files
// tracked by git and falling back to a plain directory walk.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/harrison/reqtrace/internal/fileutil"
)

// Lister kinds accepted by NewLister and the config file.
const (
	KindAuto = "auto"
	KindGit  = "git"
	KindWalk = "walk"
)

// Lister returns the paths of files under dir. Returned paths are dir joined
// with the file's path relative to dir.
type Lister interface {
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// ListError wraps a failure to enumerate a directory.
type ListError struct {
	Dir    string
	Stderr string
	Err    error
}

func (e *ListError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed to list files in %s: %v: %s", e.Dir, e.Err, e.Stderr)
	}
	return fmt.Sprintf("failed to list files in %s: %v", e.Dir, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// NewLister returns the lister for kind ("auto", "git" or "walk").
func NewLister(kind string) (Lister, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindAuto, "":
		return &AutoLister{Git: &GitLister{}, Walk: &WalkLister{}}, nil
	case KindGit:
		return &GitLister{}, nil
	case KindWalk:
		return &WalkLister{}, nil
	default:
		return nil, fmt.Errorf("unknown lister %q (supported: auto, git, walk)", kind)
	}
}

// GitLister lists the files git tracks under a directory (git ls-files).
type GitLister struct {
	// Binary is the git executable; defaults to "git" on PATH
	Binary string
}

func (g *GitLister) binary() string {
	if g.Binary != "" {
		return g.Binary
	}
	return "git"
}

// ListFiles runs `git ls-files -z` inside dir.
func (g *GitLister) ListFiles(ctx context.Context, dir string) ([]string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary(), "ls-files", "-z")
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ListError{Dir: dir, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	var files []string
	for _, rel := range strings.Split(stdout.String(), "\x00") {
		if rel == "" {
			continue
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(rel)))
	}
	return files, nil
}

// IsWorkTree reports whether dir is inside a git work tree.
func (g *GitLister) IsWorkTree(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, g.binary(), "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// WalkLister lists every regular file under a directory, skipping hidden and
// excluded directories.
type WalkLister struct {
	ExcludeDirs []string
}

// ListFiles walks dir recursively. Unreadable subdirectories are skipped.
func (w *WalkLister) ListFiles(_ context.Context, dir string) ([]string, error) {
	result, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
		Recursive:   true,
		ExcludeDirs: w.ExcludeDirs,
	})
	if err != nil {
		return nil, &ListError{Dir: dir, Err: err}
	}

	// ScanDirectory resolves to absolute paths; keep the caller's prefix so
	// paths relativize against dir the same way git output does.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &ListError{Dir: dir, Err: err}
	}
	files := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		rel, err := filepath.Rel(absDir, f)
		if err != nil {
			return nil, &ListError{Dir: dir, Err: err}
		}
		files = append(files, filepath.Join(dir, rel))
	}
	return files, nil
}

// AutoLister uses git when dir is inside a work tree and walks otherwise.
type AutoLister struct {
	Git  *GitLister
	Walk *WalkLister
}

// ListFiles dispatches to the git or walk lister.
func (a *AutoLister) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if a.Git.IsWorkTree(ctx, dir) {
		return a.Git.ListFiles(ctx, dir)
	}
	return a.Walk.ListFiles(ctx, dir)
}
