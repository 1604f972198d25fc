// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level returns the level used for the given verbosity
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Setup sends human-readable log lines to w
func Setup(w io.Writer, verbose bool) {
	zerolog.SetGlobalLevel(Level(verbose))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}).With().Timestamp().Logger()
}

// SetupFile sends JSON log lines to the file at path. Used while a
// full-screen UI owns the terminal. The returned closer releases the file.
func SetupFile(path string, verbose bool) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	zerolog.SetGlobalLevel(Level(verbose))
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

// Discard silences all logging
func Discard() {
	log.Logger = zerolog.Nop()
}
