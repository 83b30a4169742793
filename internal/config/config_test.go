package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !reflect.DeepEqual(cfg.Directories, []string{"."}) {
		t.Errorf("Directories = %v, want [.]", cfg.Directories)
	}
	if !reflect.DeepEqual(cfg.SpecFilenames, []string{"tests"}) {
		t.Errorf("SpecFilenames = %v, want [tests]", cfg.SpecFilenames)
	}
	if cfg.Lister != "auto" {
		t.Errorf("Lister = %q, want %q", cfg.Lister, "auto")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != filepath.Join(".reqtrace", "logs") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Index.DBPath != filepath.Join(".reqtrace", "index.db") {
		t.Errorf("Index.DBPath = %q", cfg.Index.DBPath)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `directories:
  - modules/*
  - test
spec_filenames: [tests, speedtests]
lister: walk
exclude:
  - "**/gold/**"
group_root: .
log_level: debug
log_dir: /tmp/reqtrace-logs
docs_dirs: [doc/content]
index:
  db_path: out/index.db
watch:
  debounce: 2s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Directories, []string{"modules/*", "test"}) {
		t.Errorf("Directories = %v", cfg.Directories)
	}
	if !reflect.DeepEqual(cfg.SpecFilenames, []string{"tests", "speedtests"}) {
		t.Errorf("SpecFilenames = %v", cfg.SpecFilenames)
	}
	if cfg.Lister != "walk" {
		t.Errorf("Lister = %q, want walk", cfg.Lister)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"**/gold/**"}) {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
	if cfg.GroupRoot != "." {
		t.Errorf("GroupRoot = %q, want .", cfg.GroupRoot)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogDir != "/tmp/reqtrace-logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if !reflect.DeepEqual(cfg.DocsDirs, []string{"doc/content"}) {
		t.Errorf("DocsDirs = %v", cfg.DocsDirs)
	}
	if cfg.Index.DBPath != "out/index.db" {
		t.Errorf("Index.DBPath = %q", cfg.Index.DBPath)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Watch.Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
}

// TestLoadConfigPartialFile verifies unspecified keys keep their defaults
func TestLoadConfigPartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log_level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	def := DefaultConfig()
	if !reflect.DeepEqual(cfg.SpecFilenames, def.SpecFilenames) || cfg.Lister != def.Lister || cfg.LogDir != def.LogDir {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

// TestLoadConfigEmptyLogDir verifies an explicit empty log_dir disables file logging
func TestLoadConfigEmptyLogDir(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log_dir: \"\"\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogDir != "" {
		t.Errorf("LogDir = %q, want empty", cfg.LogDir)
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

// TestLoadConfigErrors tests malformed files
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "invalid yaml", content: "directories: [unclosed\n", wantErr: "failed to parse config file"},
		{name: "bad debounce", content: "watch:\n  debounce: soon\n", wantErr: "invalid watch.debounce format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			_, err := LoadConfig(configPath)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFromDir tests loading from the .reqtrace directory
func TestLoadConfigFromDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".reqtrace"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".reqtrace", "config.yaml"), []byte("lister: git\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromDir(root)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}
	if cfg.Lister != "git" {
		t.Errorf("Lister = %q, want git", cfg.Lister)
	}
}

// TestMergeWithFlags verifies flags take precedence over file values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = []string{"**/gold/**"}

	lister := "walk"
	level := "trace"
	logDir := ""
	cfg.MergeWithFlags([]string{"a", "b"}, []string{"speedtests"}, &lister, []string{"**/tmp/**"}, &level, &logDir)

	if !reflect.DeepEqual(cfg.Directories, []string{"a", "b"}) {
		t.Errorf("Directories = %v", cfg.Directories)
	}
	if !reflect.DeepEqual(cfg.SpecFilenames, []string{"speedtests"}) {
		t.Errorf("SpecFilenames = %v", cfg.SpecFilenames)
	}
	if cfg.Lister != "walk" || cfg.LogLevel != "trace" || cfg.LogDir != "" {
		t.Errorf("scalar flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"**/gold/**", "**/tmp/**"}) {
		t.Errorf("Exclude = %v, flag excludes should extend configured ones", cfg.Exclude)
	}

	// nil flags leave values untouched
	before := *cfg
	cfg.MergeWithFlags(nil, nil, nil, nil, nil, nil)
	if !reflect.DeepEqual(before, *cfg) {
		t.Errorf("nil flags changed config: %+v", cfg)
	}
}

// TestValidate covers invalid configurations
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "no directories", mutate: func(c *Config) { c.Directories = nil }, wantErr: "at least one directory"},
		{name: "no spec filenames", mutate: func(c *Config) { c.SpecFilenames = nil }, wantErr: "spec_filenames"},
		{name: "spec filename with dir", mutate: func(c *Config) { c.SpecFilenames = []string{"a/tests"} }, wantErr: "must be a basename"},
		{name: "bad lister", mutate: func(c *Config) { c.Lister = "svn" }, wantErr: "invalid lister"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log_level"},
		{name: "bad exclude", mutate: func(c *Config) { c.Exclude = []string{"[oops"} }, wantErr: "invalid exclude pattern"},
		{name: "bad directory glob", mutate: func(c *Config) { c.Directories = []string{"mod/[x"} }, wantErr: "invalid directory pattern"},
		{name: "empty db path", mutate: func(c *Config) { c.Index.DBPath = "" }, wantErr: "index.db_path"},
		{name: "zero debounce", mutate: func(c *Config) { c.Watch.Debounce = 0 }, wantErr: "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestExpandDirectories verifies glob entries expand to directories in order
func TestExpandDirectories(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"modules/heat", "modules/fluids", "test"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "modules", "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Directories = []string{"test", "modules/*", "missing"}

	dirs, err := cfg.ExpandDirectories(root)
	if err != nil {
		t.Fatalf("ExpandDirectories() error = %v", err)
	}
	want := []string{
		filepath.Join(root, "test"),
		filepath.Join(root, "modules", "fluids"),
		filepath.Join(root, "modules", "heat"),
		filepath.Join(root, "missing"),
	}
	if !reflect.DeepEqual(dirs, want) {
		t.Errorf("ExpandDirectories() = %v, want %v", dirs, want)
	}
}
