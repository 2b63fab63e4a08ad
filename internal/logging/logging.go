package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func New(level string) zerolog.Logger {
	return NewWriter(level, os.Stdout)
}

// NewWriter builds a logger for an arbitrary sink; the CLI uses it with a
// console writer on stderr so traces don't mix with calendar output.
func NewWriter(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	return logger
}

func NewConsole(level string) zerolog.Logger {
	return NewWriter(level, zerolog.ConsoleWriter{Out: os.Stderr})
}
