// Package logging provides the structured logger shared by the reconciler
// commands. Output is human-readable on a terminal and JSON otherwise.
//
//	log := logging.Default()
//	log.Info().Str("path", path).Int("rows", n).Msg("CRM loaded")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

// Nop discards everything. Tests hand it to components that want a logger.
var Nop = zerolog.Nop()

func init() {
	defaultLogger = createDefaultLogger()
}

func createDefaultLogger() zerolog.Logger {
	level := levelFromEnv()
	zerolog.SetGlobalLevel(level)
	return build(os.Stderr, formatFromEnv(), level)
}

// Configure replaces the default logger. An empty level or format keeps
// the value derived from the environment.
func Configure(level, format string) error {
	lvl := levelFromEnv()
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return err
		}
		lvl = parsed
	}
	if format == "" {
		format = formatFromEnv()
	}

	zerolog.SetGlobalLevel(lvl)
	SetDefault(build(os.Stderr, format, lvl))
	return nil
}

func build(out io.Writer, format string, level zerolog.Level) zerolog.Logger {
	var writer io.Writer = out
	if format != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault swaps the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.GlobalLevel()).With().Timestamp().Logger()
}

func formatFromEnv() string {
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		return strings.ToLower(f)
	}
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return "console"
	}
	return "json"
}

func levelFromEnv() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("DEBUG") != "" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
