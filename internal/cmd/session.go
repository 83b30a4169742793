package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/reqtrace/internal/collector"
	"github.com/harrison/reqtrace/internal/config"
	"github.com/harrison/reqtrace/internal/design"
	"github.com/harrison/reqtrace/internal/logger"
	"github.com/harrison/reqtrace/internal/models"
	"github.com/harrison/reqtrace/internal/vcs"
)

// addCollectionFlags registers the flags shared by every command that scans spec files.
func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .reqtrace/config.yaml in the project root)")
	cmd.Flags().StringArray("spec", nil, "Spec file basename to collect (repeatable, default: tests)")
	cmd.Flags().String("lister", "", "How files are listed: auto, git or walk")
	cmd.Flags().StringArray("exclude", nil, "Doublestar glob of spec paths to skip (repeatable)")
	cmd.Flags().String("group-root", "", "Compute group names relative to this directory instead of each scanned directory")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run logs (empty string disables)")
	cmd.Flags().Bool("verbose", false, "Shorthand for --log-level debug")
}

// session holds the resolved configuration and loggers of one command invocation.
type session struct {
	cfg      *config.Config
	root     string
	dirs     []string
	log      logger.Logger
	recorder *logger.Recorder
	fileLog  *logger.FileLogger
	stderr   io.Writer
}

// newSession loads configuration, applies flags and sets up logging.
// Positional args override the configured directories.
func newSession(cmd *cobra.Command, args []string) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, err
	}

	var dirArgs []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		dirArgs = append(dirArgs, abs)
	}

	specs, _ := cmd.Flags().GetStringArray("spec")
	excludes, _ := cmd.Flags().GetStringArray("exclude")

	var listerPtr, levelPtr, logDirPtr *string
	if cmd.Flags().Changed("lister") {
		v, _ := cmd.Flags().GetString("lister")
		listerPtr = &v
	}
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		levelPtr = &v
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && levelPtr == nil {
		v := "debug"
		levelPtr = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}
	cfg.MergeWithFlags(dirArgs, specs, listerPtr, excludes, levelPtr, logDirPtr)

	if cmd.Flags().Changed("group-root") {
		v, _ := cmd.Flags().GetString("group-root")
		abs, err := filepath.Abs(v)
		if err != nil {
			return nil, fmt.Errorf("resolve group root: %w", err)
		}
		cfg.GroupRoot = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dirs, err := cfg.ExpandDirectories(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no directories matched %v", cfg.Directories)
	}

	s := &session{
		cfg:    cfg,
		root:   root,
		dirs:   dirs,
		stderr: cmd.ErrOrStderr(),
	}

	loggers := []logger.Logger{logger.NewConsoleLogger(s.stderr, cfg.LogLevel)}
	if cfg.LogDir != "" {
		s.fileLog, err = logger.NewFileLogger(config.ResolvePath(root, cfg.LogDir), cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		loggers = append(loggers, s.fileLog)
	}
	s.recorder = logger.NewRecorder(logger.Multi(loggers...))
	s.log = s.recorder

	s.log.Debugf("project root %s", root)
	if s.fileLog != nil {
		s.log.Debugf("run log %s", s.fileLog.Path())
	}
	return s, nil
}

func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Close flushes the run log, if any.
func (s *session) Close() {
	if s.fileLog != nil {
		s.fileLog.Close()
	}
}

// collector builds a Collector from the session configuration.
func (s *session) collector(opts ...collector.Option) (*collector.Collector, error) {
	lister, err := vcs.NewLister(s.cfg.Lister)
	if err != nil {
		return nil, err
	}

	opts = append([]collector.Option{collector.WithExcludes(s.cfg.Exclude)}, opts...)
	if s.cfg.GroupRoot != "" {
		opts = append(opts, collector.WithGroupRoot(config.ResolvePath(s.root, s.cfg.GroupRoot)))
	}
	return collector.New(lister, nil, s.recorder, opts...)
}

// collect runs one full collection over the session directories.
func (s *session) collect(ctx context.Context, opts ...collector.Option) (*models.Groups, error) {
	c, err := s.collector(opts...)
	if err != nil {
		return nil, err
	}
	groups, err := c.Collect(ctx, s.dirs, s.cfg.SpecFilenames)
	if err != nil {
		return nil, fmt.Errorf("collection failed: %w", err)
	}
	s.log.Infof("Collected %d requirements in %d groups", groups.Count(), groups.Len())
	return groups, nil
}

// resolver indexes the configured docs directories; nil when none are set.
func (s *session) resolver() (*design.Resolver, error) {
	if len(s.cfg.DocsDirs) == 0 {
		return nil, nil
	}
	roots := make([]string, len(s.cfg.DocsDirs))
	for i, d := range s.cfg.DocsDirs {
		roots[i] = config.ResolvePath(s.root, d)
	}
	return design.NewResolver(roots)
}

// diagnosticFiles lists spec files of requirements missing design or issues.
func diagnosticFiles(groups *models.Groups) []string {
	var files []string
	for _, req := range groups.All() {
		if len(req.Design) == 0 || len(req.Issues) == 0 {
			files = append(files, req.Filename)
		}
	}
	return files
}
