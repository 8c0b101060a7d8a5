package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const DefaultLevel = "warn"

var log zerolog.Logger

// Logs go to stderr; stdout carries decoded URLs only.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	SetLevel(DefaultLevel)
}

// SetOutput replaces the log destination.
func SetOutput(w io.Writer) {
	log = zerolog.New(w).
		With().
		Timestamp().
		Logger()
}

// SetLevel sets the global level, falling back to DefaultLevel for unknown
// names.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}
