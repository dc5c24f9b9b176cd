package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/runner/login"
	"tableflip.dev/pinmap/pkg/runner/logout"
)

func addLogin(topLevel *cobra.Command) {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "sign in and persist the session",
		Example: `
pinmap login --email you@example.com --password secret
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := auth.NewClient(auth.ConfigFromEnv())
			if err != nil {
				return err
			}
			l := login.Login{Identity: identity, Email: email, Password: password}
			return l.Do(context.Background())
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email.")
	cmd.Flags().StringVar(&password, "password", "", "Account password.")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	topLevel.AddCommand(cmd)
}

func addLogout(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "end the persisted session",
		Example: `
pinmap logout
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := auth.NewClient(auth.ConfigFromEnv())
			if err != nil {
				return err
			}
			l := logout.Logout{Identity: identity}
			return l.Do(context.Background())
		},
	}

	topLevel.AddCommand(cmd)
}
