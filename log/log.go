// Package log provides the application-wide zerolog constructor.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so callers can depend on this package
// without importing zerolog directly at the entrypoint.
type Logger struct {
	zerolog.Logger
}

// New creates a logger with the given level. When pretty is true, output is
// human-readable console format; otherwise structured JSON on stderr.
func New(level string, pretty bool) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return Logger{logger.Level(lvl).With().Timestamp().Logger()}
}
