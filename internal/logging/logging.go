// Package logging configures the process-wide slog logger.
//
// The level comes from an explicit setting or, when that is empty, from
// the LOG_LEVEL environment variable. Debug logs carry source locations.
// Every logger is tagged with a run id so that logs of concurrent runs
// sharing one workspace can be told apart.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// EnvLevel names the environment variable read when no level is given.
const EnvLevel = "LOG_LEVEL"

// ParseLevel maps debug, info, warn (or warning) and error onto a level,
// case-insensitively. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Level resolves the effective level from level or LOG_LEVEL.
func Level(level string) slog.Level {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	return ParseLevel(level)
}

// New returns a text logger writing to w, tagged with the run id.
func New(w io.Writer, level slog.Level, run string) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(h).With("run", run)
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}

// SetDefault installs a stderr logger for a new run as the slog default and
// returns the run id.
func SetDefault(level string) string {
	run := NewRunID()
	slog.SetDefault(New(os.Stderr, Level(level), run))
	return run
}
