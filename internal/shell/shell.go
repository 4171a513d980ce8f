// Package shell runs the interactive Code Marshall session: it reads one line
// at a time, splits it with shell quoting rules and hands it to the command
// dispatcher. Errors are reported and the session continues.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/codemarshall/internal/command"
	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
)

// Prompt is printed before every line is read.
const Prompt = "Code Marshall> "

const banner = `
   _____          _        __  __                _           _ _
  / ____|        | |      |  \/  |              | |         | | |
 | |     ___   __| | ___  | \  / | __ _ _ __ ___| |__   __ _| | |
 | |    / _ \ / _` + "`" + ` |/ _ \ | |\/| |/ _` + "`" + ` | '__/ __| '_ \ / _` + "`" + ` | | |
 | |___| (_) | (_| |  __/ | |  | | (_| | |  \__ \ | | | (_| | | |
  \_____\___/ \__,_|\___| |_|  |_|\__,_|_|  |___/_| |_|\__,_|_|_|
`

// maxLineBytes bounds one input line; code arguments can be long.
const maxLineBytes = 1 << 20

// Shell is one interactive session.
type Shell struct {
	Dispatcher *command.Dispatcher
	In         io.Reader
	Out        io.Writer
	Log        zerolog.Logger
	Quiet      bool // skip the banner and welcome text
}

// Run reads commands until quit, exit, end of input or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	if !s.Quiet {
		fmt.Fprint(s.Out, banner)
		fmt.Fprintln(s.Out)
		fmt.Fprintln(s.Out, "Welcome to Code Marshall!")
		fmt.Fprintln(s.Out, "Enter 'help' to see available commands.")
	}

	scanner := bufio.NewScanner(s.In)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.Out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.Out)
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil // end of input
		}

		if done := s.handle(ctx, scanner.Text()); done {
			fmt.Fprintln(s.Out, "Goodbye!")
			return nil
		}
	}
}

// handle runs one input line and reports whether the session should end.
func (s *Shell) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	// Quotes and backslashes group words; '#' is an ordinary character so
	// code values such as #include survive unquoted.
	args, err := shellquote.Split(line)
	if err != nil {
		s.reportError(apperror.Usage("Could not parse command: %v", err))
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch strings.ToLower(args[0]) {
	case "quit", "exit":
		return true
	case "help":
		PrintHelp(s.Out)
		return false
	}

	if err := s.Dispatcher.Run(ctx, args); err != nil {
		s.reportError(err)
	}
	return false
}

func (s *Shell) reportError(err error) {
	if !apperror.IsUserError(err) {
		s.Log.Error().Err(err).Msg("command failed")
	}
	fmt.Fprintf(s.Out, "Error: %s\n", err)
}

// PrintHelp writes the command table.
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "Available commands:")
	for _, spec := range command.Specs() {
		fmt.Fprintf(w, "  %-42s %s\n", spec.Usage, spec.Summary)
	}
	fmt.Fprintf(w, "  %-42s %s\n", "help", "Show this help")
	fmt.Fprintf(w, "  %-42s %s\n", "quit", "Exit the application")
}
