package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLogger writes diagnostics of a single collection run to a timestamped
// file in the log directory and keeps a latest.log symlink pointing at it.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates the log directory if needed and opens a new run log.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log; a nanosecond suffix avoids clobbering runs started in the same second
	now := time.Now()
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s-%09d.log", now.Format("20060102-150405"), now.Nanosecond()))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write("=== reqtrace run log ===\n")
	fl.write(fmt.Sprintf("Started at: %s\n\n", now.Format(time.RFC3339)))

	return fl, nil
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) Tracef(format string, args ...interface{}) {
	fl.logWithLevel("TRACE", format, args...)
}

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", format, args...)
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.logWithLevel("INFO", format, args...)
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.logWithLevel("WARN", format, args...)
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.logWithLevel("ERROR", format, args...)
}

func (fl *FileLogger) logWithLevel(level, format string, args ...interface{}) {
	if !shouldLog(fl.logLevel, strings.ToLower(level)) {
		return
	}
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format(time.RFC3339), level, message))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}
	fl.runLog.WriteString(fmt.Sprintf("\nFinished at: %s\n", time.Now().Format(time.RFC3339)))
	if err := fl.runLog.Sync(); err != nil {
		return fmt.Errorf("failed to sync run log: %w", err)
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}

func (fl *FileLogger) write(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return
	}
	fl.runLog.WriteString(message)
}
