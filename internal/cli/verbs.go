package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/codemarshall/internal/command"
	"github.com/mesh-intelligence/codemarshall/pkg/apperror"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

// verbCmds exposes the shell verbs as one-shot subcommands. Verbs that only
// change session state are left to the shell.
func (a *app) verbCmds() []*cobra.Command {
	var cmds []*cobra.Command
	for _, spec := range command.Specs() {
		if spec.SessionOnly {
			continue
		}
		cmds = append(cmds, a.verbCmd(spec))
	}
	return cmds
}

func (a *app) verbCmd(spec command.Spec) *cobra.Command {
	cmd := &cobra.Command{
		Use:     spec.Usage,
		Aliases: spec.Aliases,
		Short:   spec.Summary,
		// Arity is checked by command.Parse so the message matches the shell's.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerb(cmd, spec, args)
		},
	}

	if spec.Name == "add" {
		f := cmd.Flags()
		f.StringVar(&a.add.user, "user", "", "owner of the snippet (default: default_user)")
		f.StringVar(&a.add.collection, "collection", "", "collection for the snippet (default: default_collection)")
		f.StringVar(&a.add.description, "description", "", "snippet description")
	}
	return cmd
}

func (a *app) runVerb(cmd *cobra.Command, spec command.Spec, args []string) error {
	// Every shape check runs before the store is opened, so a malformed
	// command leaves no database behind.
	call, err := command.Parse(append([]string{spec.Name}, args...))
	if err != nil {
		return err
	}
	if spec.Name == "add" && a.add.user == "" && a.settings.DefaultUser == "" {
		return apperror.Usage("No user given. Pass --user or set default_user in config.yaml.")
	}
	if a.add.collection != "" {
		if _, err := types.NewCollection(a.add.collection); err != nil {
			return err
		}
	}

	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.detach(store)

	d := a.dispatcher(store, cmd.OutOrStdout())
	if a.add.user != "" {
		d.Session.User = a.add.user
	}
	if a.add.collection != "" {
		d.Session.Collection = a.add.collection
	}
	d.Session.Description = a.add.description

	return classify(d.Exec(cmd.Context(), call))
}
