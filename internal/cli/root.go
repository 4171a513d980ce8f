// Package cli implements the codemarshall command-line interface. With no
// subcommand it starts the interactive shell; every shell verb that does not
// depend on session state is also available as a one-shot subcommand.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codemarshall/internal/command"
	"github.com/mesh-intelligence/codemarshall/internal/config"
	"github.com/mesh-intelligence/codemarshall/internal/logger"
	"github.com/mesh-intelligence/codemarshall/internal/shell"
	"github.com/mesh-intelligence/codemarshall/internal/sqlite"
	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir   string
	dataDir     string
	databaseURL string
	logLevel    string
	jsonMode    bool
}

// addFlags are the one-shot replacements for session state.
type addFlags struct {
	user        string
	collection  string
	description string
}

// app is the state of one invocation. Settings and the logger are resolved
// in the root PersistentPreRunE, after flags are parsed.
type app struct {
	flags    rootFlags
	add      addFlags
	errOut   io.Writer
	settings *config.Settings
	log      zerolog.Logger
}

// systemError marks failures outside the user's control: configuration,
// storage and I/O. They exit with exitSysError.
type systemError struct {
	err error
}

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// classify passes user errors through and marks everything else as a
// system error.
func classify(err error) error {
	if err == nil || apperror.IsUserError(err) {
		return err
	}
	return sysErr(err)
}

// NewRootCmd creates the top-level "codemarshall" command with global flags
// and all subcommands registered. Diagnostics are written to errOut.
func NewRootCmd(errOut io.Writer) *cobra.Command {
	a := &app{errOut: errOut, log: zerolog.Nop()}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codemarshall",
		Short: "Store, organize and search code snippets",
		Long: "Code Marshall keeps code snippets grouped by collection and owner.\n" +
			"Run without a subcommand to start an interactive session.",
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setup,
		RunE:              a.runShell,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env CODEMARSHALL_CONFIG_DIR)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory for the default SQLite database (env CODEMARSHALL_DATA_DIR)")
	pf.StringVar(&a.flags.databaseURL, "database-url", "", "database connection URL (env DATABASE_URL)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(a.newShellCmd())
	root.AddCommand(a.verbCmds()...)
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newExportCmd())
	root.AddCommand(a.newImportCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the CLI against the process streams and returns the exit
// code. SIGINT and SIGTERM cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes one invocation with the given arguments and streams.
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root := NewRootCmd(errOut)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintf(errOut, "Error: %s\n", err)

	var se *systemError
	if errors.As(err, &se) {
		return exitSysError
	}
	return exitUserError
}

// setup resolves configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(config.Overrides{
		ConfigDir:   a.flags.configDir,
		DataDir:     a.flags.dataDir,
		DatabaseURL: a.flags.databaseURL,
		LogLevel:    a.flags.logLevel,
	})
	if err != nil {
		return sysErr(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.New(logger.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Out:    a.errOut,
		Color:  isTerminal(a.errOut),
	})
	if err != nil {
		return sysErr(fmt.Errorf("configure logging: %w", err))
	}

	a.settings = settings
	a.log = log.With().Str("cmd", cmd.Name()).Logger()
	a.log.Debug().
		Str("config_dir", settings.ConfigDir).
		Str("data_dir", settings.DataDir).
		Msg("configuration loaded")
	return nil
}

// openStore attaches the backend named by the resolved settings. The caller
// must call a.detach on the result.
func (a *app) openStore(ctx context.Context) (*sqlite.Backend, error) {
	store, err := sqlite.Open(ctx, a.settings.StoreConfig(), a.log)
	if err != nil {
		return nil, sysErr(fmt.Errorf("open store: %w", err))
	}
	return store, nil
}

func (a *app) detach(store *sqlite.Backend) {
	if err := store.Detach(); err != nil {
		a.log.Error().Err(err).Msg("detach store")
	}
}

// dispatcher returns a command dispatcher seeded from the configured
// defaults.
func (a *app) dispatcher(store *sqlite.Backend, out io.Writer) *command.Dispatcher {
	return &command.Dispatcher{
		Store: store,
		Out:   out,
		JSON:  a.flags.jsonMode,
		Session: command.Session{
			User:       a.settings.DefaultUser,
			Collection: a.settings.DefaultCollection,
		},
	}
}

func (a *app) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE:  a.runShell,
	}
}

func (a *app) runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.detach(store)

	sh := &shell.Shell{
		Dispatcher: a.dispatcher(store, cmd.OutOrStdout()),
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		Log:        a.log,
	}
	if err := sh.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return sysErr(err)
	}
	return nil
}

// isTerminal reports whether w is a terminal that accepts ANSI colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
