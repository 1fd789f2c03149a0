// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var globalLogger *slog.Logger

// Levels lists the accepted level names, lowest first.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel maps a level name to a slog level. Case is ignored.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (must be %s)", level, strings.Join(Levels, ", "))
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level string) (*slog.Logger, error) {
	lv, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), nil
}

// InitLogger installs a stdout logger at level as the default.
func InitLogger(level string) error {
	return InitLoggerTo(os.Stdout, level)
}

// InitLoggerTo installs a logger writing to w as the default. The console
// sends logs to stderr so they do not interleave with command output.
func InitLoggerTo(w io.Writer, level string) error {
	l, err := New(w, level)
	if err != nil {
		return err
	}
	globalLogger = l
	slog.SetDefault(globalLogger)
	return nil
}

// GetLogger returns the installed logger, or slog.Default before
// InitLogger.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}
