package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	apperrors "github.com/cwt/hydra/internal/errors"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel  // Minimum log level to output
	Format LogFormat // Output format (json or text)
	Output io.Writer // Output destination (defaults to stderr)
	Quiet  bool      // If true, suppress non-error output
}

// Logger wraps slog.Logger. Logs go to stderr so they never mix with the
// multiplexed host output stream on stdout.
type Logger struct {
	logger *slog.Logger
	config Config
}

// New creates a new logger instance
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: convertLogLevel(config.Level),
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		config: config,
	}
}

// NewFromConfig creates a logger from application configuration strings.
func NewFromConfig(logLevel, logFormat string, quiet bool) *Logger {
	var level LogLevel
	switch logLevel {
	case "info":
		level = LevelInfo
	default:
		level = LevelError
	}

	var format LogFormat
	switch logFormat {
	case "json":
		format = FormatJSON
	default:
		format = FormatText
	}

	return New(Config{Level: level, Format: format, Quiet: quiet})
}

func convertLogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelError:
		return slog.LevelError
	case LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// LogConnection logs an established SSH connection
func (l *Logger) LogConnection(host, addr string, attempt int, duration time.Duration) {
	l.Info("ssh connection established",
		"host", host,
		"addr", addr,
		"attempt", attempt,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogConnectionError logs a failed connection attempt, classifying whether
// the failure was a timeout so hung hosts stand out from refused ones.
func (l *Logger) LogConnectionError(host, addr string, attempt int, err error) {
	l.Info("ssh connection attempt failed",
		"host", host,
		"addr", addr,
		"attempt", attempt,
		"timeout", apperrors.IsTimeout(err),
		"error", err.Error(),
	)
}

// LogRetry logs a pending retry
func (l *Logger) LogRetry(host string, attempt int, backoff time.Duration) {
	l.Info("retrying connection",
		"host", host,
		"attempt", attempt,
		"backoff_ms", backoff.Milliseconds(),
	)
}

// LogAlgorithmFallback logs the one-way degradation from the narrowed
// cipher/MAC preference to the remote's default algorithm set.
func (l *Logger) LogAlgorithmFallback(host string, err error) {
	l.Info("falling back to default transport algorithms",
		"host", host,
		"error", err.Error(),
	)
}

// LogHostsLoaded logs how many hosts a source yielded
func (l *Logger) LogHostsLoaded(source string, count int) {
	l.Info("hosts loaded",
		"source", source,
		"count", count,
	)
}

// LogRowSkipped logs a skipped malformed host row. Emitted at error level so
// a silently shrinking fleet stays visible under the default log level.
func (l *Logger) LogRowSkipped(source string, row int, cause error) {
	l.logger.Error("host row skipped",
		"file", source,
		"row", row,
		"error", cause.Error(),
	)
}

// LogRunComplete logs the end-of-run summary
func (l *Logger) LogRunComplete(hosts int, elapsed time.Duration) {
	l.Info("run complete",
		"hosts", hosts,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
