// Package logging builds the process-wide structured logger,
// grounded on the teacher's cmd/root.go:setupLogger — a tint-colored
// slog.Handler selected by configured log level, plus an optional
// lumberjack-rotated file sink for long-running unattended operation
// (a TNC, unlike a web service, is often left running for months).
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/doismellburning/samoyed/internal/config"
)

// FileOptions configures optional log-file rotation. Zero value
// means "no file sink" — only the console handler is installed.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a slog.Logger for the given level, writing colorized
// output to stdout/stderr (warn/error go to stderr, matching the
// teacher) and, if file is non-zero, also to a rotated log file.
func New(level config.LogLevel, file FileOptions) *slog.Logger {
	var out io.Writer
	var slogLevel slog.Level

	switch level {
	case config.LogLevelDebug:
		out, slogLevel = os.Stdout, slog.LevelDebug
	case config.LogLevelInfo:
		out, slogLevel = os.Stdout, slog.LevelInfo
	case config.LogLevelWarn:
		out, slogLevel = os.Stderr, slog.LevelWarn
	case config.LogLevelError:
		out, slogLevel = os.Stderr, slog.LevelError
	default:
		out, slogLevel = os.Stdout, slog.LevelInfo
	}

	if file.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAge:     file.MaxAgeDays,
		}
		out = io.MultiWriter(out, rotator)
	}

	logger := slog.New(tint.NewHandler(out, &tint.Options{Level: slogLevel}))
	return logger
}

// SetDefault installs logger as the process-wide slog default, the
// way the teacher's setupLogger does.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
