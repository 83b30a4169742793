package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// IndexConfig represents index store configuration
type IndexConfig struct {
	// DBPath is the path to the SQLite index database
	DBPath string `yaml:"db_path"`
}

// WatchConfig represents watch mode configuration
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a re-scan
	Debounce time.Duration `yaml:"debounce"`
}

// Config represents reqtrace configuration options
type Config struct {
	// Directories are the base directories to scan, in order. Entries may be doublestar globs.
	Directories []string `yaml:"directories"`

	// SpecFilenames are the basenames recognised as test specification files
	SpecFilenames []string `yaml:"spec_filenames"`

	// Lister selects how files are enumerated (auto, git, walk)
	Lister string `yaml:"lister"`

	// Exclude lists doublestar globs matched against paths relative to each directory
	Exclude []string `yaml:"exclude"`

	// GroupRoot makes group keys relative to this directory instead of each scanned directory
	GroupRoot string `yaml:"group_root"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written (empty disables)
	LogDir string `yaml:"log_dir"`

	// DocsDirs are markdown roots used to resolve design references
	DocsDirs []string `yaml:"docs_dirs"`

	Index IndexConfig `yaml:"index"`
	Watch WatchConfig `yaml:"watch"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Directories:   []string{"."},
		SpecFilenames: []string{"tests"},
		Lister:        "auto",
		LogLevel:      "info",
		LogDir:        filepath.Join(DirName, "logs"),
		Index: IndexConfig{
			DBPath: filepath.Join(DirName, "index.db"),
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML; parse them separately
	type yamlConfig struct {
		Directories   []string    `yaml:"directories"`
		SpecFilenames []string    `yaml:"spec_filenames"`
		Lister        string      `yaml:"lister"`
		Exclude       []string    `yaml:"exclude"`
		GroupRoot     string      `yaml:"group_root"`
		LogLevel      string      `yaml:"log_level"`
		LogDir        *string     `yaml:"log_dir"`
		DocsDirs      []string    `yaml:"docs_dirs"`
		Index         IndexConfig `yaml:"index"`
		Watch         struct {
			Debounce string `yaml:"debounce"`
		} `yaml:"watch"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(yamlCfg.Directories) > 0 {
		cfg.Directories = yamlCfg.Directories
	}
	if len(yamlCfg.SpecFilenames) > 0 {
		cfg.SpecFilenames = yamlCfg.SpecFilenames
	}
	if yamlCfg.Lister != "" {
		cfg.Lister = yamlCfg.Lister
	}
	if len(yamlCfg.Exclude) > 0 {
		cfg.Exclude = yamlCfg.Exclude
	}
	if yamlCfg.GroupRoot != "" {
		cfg.GroupRoot = yamlCfg.GroupRoot
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	// An explicit empty log_dir turns file logging off
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}
	if len(yamlCfg.DocsDirs) > 0 {
		cfg.DocsDirs = yamlCfg.DocsDirs
	}
	if yamlCfg.Index.DBPath != "" {
		cfg.Index.DBPath = yamlCfg.Index.DBPath
	}
	if yamlCfg.Watch.Debounce != "" {
		debounce, err := time.ParseDuration(yamlCfg.Watch.Debounce)
		if err != nil {
			return nil, fmt.Errorf("invalid watch.debounce format %q: %w", yamlCfg.Watch.Debounce, err)
		}
		cfg.Watch.Debounce = debounce
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .reqtrace/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(directories []string, specFilenames []string, lister *string, exclude []string, logLevel *string, logDir *string) {
	if len(directories) > 0 {
		c.Directories = directories
	}
	if len(specFilenames) > 0 {
		c.SpecFilenames = specFilenames
	}
	if lister != nil {
		c.Lister = *lister
	}
	if len(exclude) > 0 {
		c.Exclude = append(append([]string{}, c.Exclude...), exclude...)
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if len(c.Directories) == 0 {
		return fmt.Errorf("at least one directory is required")
	}
	if len(c.SpecFilenames) == 0 {
		return fmt.Errorf("spec_filenames cannot be empty")
	}
	for _, name := range c.SpecFilenames {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("invalid spec filename %q, must be a basename", name)
		}
	}

	validListers := map[string]bool{"auto": true, "git": true, "walk": true}
	if !validListers[c.Lister] {
		return fmt.Errorf("invalid lister %q, must be one of: auto, git, walk", c.Lister)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	for _, dir := range c.Directories {
		if !doublestar.ValidatePattern(filepath.ToSlash(dir)) {
			return fmt.Errorf("invalid directory pattern %q", dir)
		}
	}

	if c.Index.DBPath == "" {
		return fmt.Errorf("index.db_path cannot be empty")
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be > 0, got %v", c.Watch.Debounce)
	}

	return nil
}

// ExpandDirectories resolves directory globs relative to root. Plain entries
// are kept even when missing so the lister reports them; glob entries expand
// to the matching directories in lexical order.
func (c *Config) ExpandDirectories(root string) ([]string, error) {
	var dirs []string
	for _, entry := range c.Directories {
		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if !hasMeta(entry) {
			dirs = append(dirs, path)
			continue
		}

		matches, err := doublestar.FilepathGlob(path)
		if err != nil {
			return nil, fmt.Errorf("expand directory pattern %q: %w", entry, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				dirs = append(dirs, m)
			}
		}
	}
	return dirs, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
