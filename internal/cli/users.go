package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect user accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.api.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}
			if a.asJSON {
				printJSON(a.out, users)
				return nil
			}
			userTable(a.out, users)
			return nil
		},
	})
	return cmd
}
