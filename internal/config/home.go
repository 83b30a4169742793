package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-project directory holding config, logs and the index.
const DirName = ".reqtrace"

// FindProjectRoot walks up from start looking for a .reqtrace directory or a
// .git entry. It returns start itself when neither is found.
func FindProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}

	current := abs
	for {
		if info, err := os.Stat(filepath.Join(current, DirName)); err == nil && info.IsDir() {
			return current, nil
		}
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return abs, nil
}

// GetHome returns the .reqtrace directory for the project containing start.
// Priority order:
//  1. REQTRACE_HOME environment variable (if set)
//  2. <project root>/.reqtrace
func GetHome(start string) (string, error) {
	if home := os.Getenv("REQTRACE_HOME"); home != "" {
		return home, nil
	}
	root, err := FindProjectRoot(start)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, DirName), nil
}

// ResolvePath makes a configured path absolute against the project root.
func ResolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
