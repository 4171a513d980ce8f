// Package logger builds the process logger. Diagnostics go to stderr so they
// never interleave with command output on stdout.
package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// DefaultLevel keeps the interactive session quiet.
const DefaultLevel = "warn"

// levelAliases maps level names zerolog does not know to ones it does.
var levelAliases = map[string]string{
	"warning":  "warn",
	"critical": "fatal",
}

// Options configures New.
type Options struct {
	Level  string    // zerolog level name or WARNING/CRITICAL; empty means DefaultLevel
	Format string    // FormatConsole or FormatJSON; empty means console
	Out    io.Writer // destination, usually os.Stderr
	Color  bool      // ANSI colors in console output
}

// New returns a logger writing to opts.Out at opts.Level.
func New(opts Options) (zerolog.Logger, error) {
	levelName := strings.ToLower(strings.TrimSpace(opts.Level))
	if levelName == "" {
		levelName = DefaultLevel
	}
	if alias, ok := levelAliases[levelName]; ok {
		levelName = alias
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level %q: %w", opts.Level, err)
	}

	var out io.Writer
	switch opts.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        opts.Out,
			NoColor:    !opts.Color,
			TimeFormat: "2006-01-02 15:04:05 MST",
		}
	case FormatJSON:
		out = opts.Out
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = true

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
