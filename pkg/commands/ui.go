package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/runner/ui"
	"tableflip.dev/pinmap/pkg/store"
)

func addUI(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "open the map interface",
		Example: `
pinmap ui
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Load(nil)
			if err != nil {
				return err
			}
			identity, err := auth.NewClient(auth.ConfigFromEnv())
			if err != nil {
				return err
			}
			i := ui.UI{Store: s, Identity: identity}
			return i.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
