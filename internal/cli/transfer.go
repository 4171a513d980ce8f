package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
)

// transferResult is the --json output of export and import.
type transferResult struct {
	File     string `json:"file"`
	Snippets int    `json:"snippets"`
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every snippet to a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.detach(store)

			n, err := store.Export(cmd.Context(), args[0])
			if err != nil {
				return sysErr(fmt.Errorf("export: %w", err))
			}
			return a.reportTransfer(cmd, "Exported %d snippets to %s.", transferResult{File: args[0], Snippets: n})
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create snippets from a JSONL file written by export",
		Long: "Create snippets from a JSONL file written by export. Missing users and\n" +
			"collections are created. Malformed lines are skipped; import stops at the\n" +
			"first record the store rejects and keeps the records before it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return apperror.Usage("File not found: %s", args[0])
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.detach(store)

			n, err := store.Import(cmd.Context(), args[0])
			if err != nil {
				a.log.Warn().Int("imported", n).Msg("import stopped early")
				return classify(fmt.Errorf("import: %w", err))
			}
			return a.reportTransfer(cmd, "Imported %d snippets from %s.", transferResult{File: args[0], Snippets: n})
		},
	}
}

func (a *app) reportTransfer(cmd *cobra.Command, format string, r transferResult) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return sysErr(err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintf(out, format+"\n", r.Snippets, r.File)
	return err
}
