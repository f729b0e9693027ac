package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the editor logger. Console output is colored; each extra
// writer (a log file) gets the same line format without colors.
func New(level string, console io.Writer, files ...io.Writer) zerolog.Logger {
	writers := make([]io.Writer, 0, 1+len(files))
	writers = append(writers, zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
	})
	for _, f := range files {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(level)).
		With().Timestamp().Logger()
}

// Component tags a logger with the subsystem emitting it.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
