package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codemarshall/internal/config"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Write a default config.yaml to the configuration directory if none exists,\n" +
			"then connect to the database and create the schema.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	s := a.settings
	path := s.ConfigPath()
	wrote, err := config.WriteFileIfMissing(path, config.File{
		DatabaseURL:       s.DatabaseURL,
		LogLevel:          s.LogLevel,
		DefaultUser:       s.DefaultUser,
		DefaultCollection: s.DefaultCollection,
		ConnectRetries:    s.ConnectRetries,
		ConnectDelay:      s.ConnectDelay.String(),
	})
	if err != nil {
		return sysErr(fmt.Errorf("write config: %w", err))
	}

	// Attach creates the schema; detach right away.
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	if err := store.Detach(); err != nil {
		return sysErr(fmt.Errorf("finalize storage: %w", err))
	}

	out := cmd.OutOrStdout()
	if wrote {
		fmt.Fprintf(out, "Wrote %s\n", path)
	} else {
		fmt.Fprintf(out, "Using existing %s\n", path)
	}
	fmt.Fprintln(out, "Code Marshall initialized successfully")
	return nil
}
