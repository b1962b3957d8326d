// Package obslog wires the wallet's structured logger. Every subsystem
// takes a zerolog.Logger and scopes it with a "component" field rather than
// reaching for a package-global logger, so tests can inject a silent one.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Mode selects the logger's output shape.
type Mode int

const (
	// ModeInteractive renders human-readable, colorized lines to stderr —
	// used by every CLI subcommand that a person is watching.
	ModeInteractive Mode = iota

	// ModeStdioServer renders compact JSON to stderr only. Stdout is
	// reserved for newline-delimited JSON-RPC frames; a stray log line on
	// stdout would corrupt the protocol stream, so this mode never writes
	// there.
	ModeStdioServer
)

// New builds a root logger for mode at level.
func New(mode Mode, level zerolog.Level) zerolog.Logger {
	var w io.Writer = os.Stderr
	if mode == ModeInteractive {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel maps a CLI-facing level string to a zerolog.Level, defaulting
// to Info on an unrecognized value.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
