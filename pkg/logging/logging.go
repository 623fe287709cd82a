package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dotpkg/dotpkg/pkg/paths"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global logger based on verbosity level.
// Console output is always active; a timestamped log file is opened
// lazily the first time a record at warn level or above is written, so
// clean runs leave no file behind.
func SetupLogger(verbosity int) {
	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}

	multi := zerolog.MultiLevelWriter(consoleWriter, newLazyFileWriter(logFilePath()))
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()

	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// logFilePath returns the path a lazily-opened log file would use.
// Each run gets its own timestamped file under the XDG state dir.
func logFilePath() string {
	dir := paths.LogDir()
	name := fmt.Sprintf("dotpkg-%s.log", time.Now().Format("20060102-150405"))
	return filepath.Join(dir, name)
}

// lazyFileWriter opens its file only when a record at warn level or
// above arrives. Records below that threshold are dropped until the
// file exists, after which everything is appended.
type lazyFileWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	failed bool
}

func newLazyFileWriter(path string) *lazyFileWriter {
	return &lazyFileWriter{path: path}
}

func (w *lazyFileWriter) Write(p []byte) (int, error) {
	// Plain writes carry no level; treat them as below threshold.
	return len(p), nil
}

func (w *lazyFileWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if level < zerolog.WarnLevel || w.failed {
			return len(p), nil
		}
		if err := w.open(); err != nil {
			// Console logging still works; don't retry every record.
			w.failed = true
			return len(p), nil
		}
	}
	return w.file.Write(p)
}

func (w *lazyFileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	w.file = file
	return nil
}

// LogPath reports where the current run's log file is (or would be)
// written. Used by the CLI to point the operator at it after failures.
func LogPath() string {
	return paths.LogDir()
}

// LogCommand logs a command execution with its arguments
func LogCommand(cmd string, args []string) {
	log.Debug().
		Str("command", cmd).
		Strs("args", args).
		Msg("Executing command")
}

// LogDuration logs the duration of an operation
func LogDuration(start time.Time, operation string) {
	log.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed")
}
