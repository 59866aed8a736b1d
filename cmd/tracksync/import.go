package main

import (
	"github.com/spf13/cobra"

	"tracksync/internal/syncer"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from the remote tracker",
	}
	cmd.AddCommand(newImportUsersCmd())
	return cmd
}

func newImportUsersCmd() *cobra.Command {
	var asUser string
	var role string
	var includeInactive bool

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Import tracker accounts as local users",
		Long: `Walk the membership of every visible project and reconcile each
distinct account into the local user table.

Users created by the import get the requested role; users that already
exist keep their locally assigned role. Inactive accounts are skipped
unless --include-inactive is set.

Examples:
  tracksync import users
  tracksync import users --role viewer --include-inactive`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			userID, err := app.actingUser(asUser)
			if err != nil {
				return err
			}

			if role == "" {
				role = app.config.Sync.DefaultRole
			}
			run, err := app.syncer.ImportUsers(userID, syncer.ImportOptions{
				DefaultRole:     role,
				IncludeInactive: includeInactive,
			})
			if err != nil {
				return err
			}
			printRunSummary(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	cmd.Flags().StringVar(&role, "role", "", "role assigned to newly created users (default: config sync.default_role)")
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "also import deactivated accounts")
	return cmd
}
