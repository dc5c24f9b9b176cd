package commands

import (
	"context"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/runner/list"
	"tableflip.dev/pinmap/pkg/store"
)

func addList(topLevel *cobra.Command) {
	var (
		owner    string
		archived bool
		showID   bool
		asTable  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list your notes without opening the ui",
		Example: `
pinmap list
pinmap list --archived
pinmap list --table --ids
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Load(nil)
			if err != nil {
				return err
			}
			if owner == "" {
				identity, err := auth.NewClient(auth.ConfigFromEnv())
				if err != nil {
					return err
				}
				if user := identity.CurrentUser(); user != nil {
					owner = user.ID
				}
			}
			l := list.List{
				Store:    s,
				OwnerID:  owner,
				Archived: archived,
				ShowID:   showID,
				AsTable:  asTable,
				AsJSON:   oo.JSON,
			}
			return oo.HandleError(l.Do(context.Background()))
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner id to list for. Defaults to the signed-in session.")
	cmd.Flags().BoolVar(&archived, "archived", false, "List archived notes instead of active ones.")
	cmd.Flags().BoolVar(&showID, "ids", false, "Show note ids.")
	cmd.Flags().BoolVar(&asTable, "table", false, "Render as an aligned table.")
	base.AddOutputArg(cmd, oo)

	topLevel.AddCommand(cmd)
}
