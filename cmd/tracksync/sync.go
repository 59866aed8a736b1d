package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/store"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run sync flows against the remote tracker",
		Long: `Pull data from the remote tracker into the local store.

Each flow is booked into the run ledger. Repeated syncs reconcile by
remote identifier: existing rows are updated in place, new records get
fresh local ids.

Examples:
  # Pull every visible project and its membership
  tracksync sync projects

  # Pull all tasks of one project (by key or remote id)
  tracksync sync tasks CORE

  # Pull all tasks assigned to a tracker account
  tracksync sync user-tasks acc-123

  # Refresh a single issue on demand (no ledger entry)
  tracksync sync issue CORE-17`,
	}

	cmd.AddCommand(newSyncProjectsCmd())
	cmd.AddCommand(newSyncTasksCmd())
	cmd.AddCommand(newSyncUserTasksCmd())
	cmd.AddCommand(newSyncIssueCmd())

	return cmd
}

func newSyncProjectsCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Pull all visible projects and their membership",
		Args:  cobra.NoArgs,
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

			run, err := app.syncer.SyncAllProjects(userID)
			if err != nil {
				return err
			}
			printRunSummary(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	return cmd
}

func newSyncTasksCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "tasks <project>",
		Short: "Pull all tasks of one project",
		Long: `Pull all tasks of one project, referenced by its key (e.g. CORE)
or its remote id. The project must have been synced before.`,
		Args: cobra.ExactArgs(1),
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

			run, err := app.syncer.SyncProjectTasks(userID, args[0])
			if err != nil {
				return err
			}
			printRunSummary(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	return cmd
}

func newSyncUserTasksCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "user-tasks <account-id>",
		Short: "Pull all tasks assigned to one tracker account",
		Args:  cobra.ExactArgs(1),
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

			run, err := app.syncer.SyncUserTasks(userID, args[0])
			if err != nil {
				return err
			}
			printRunSummary(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	return cmd
}

func newSyncIssueCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "issue <issue-key>",
		Short: "Refresh a single issue on demand",
		Long: `Fetch one issue by key or remote id and reconcile it into the local
store. Unlike the bulk flows, this writes no ledger entry and reports
errors directly.`,
		Args: cobra.ExactArgs(1),
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

			task, err := app.syncer.SyncIssue(userID, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Synced %s: %s [%s]\n", task.ExternalKey, task.Title, task.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	return cmd
}

func printRunSummary(run *store.SyncRun) {
	fmt.Printf("Run %s (%s) %s\n", run.ID, run.FlowType, run.Status)
	fmt.Printf("  created: %d  updated: %d  failed: %d  total: %d\n",
		run.CreatedCount, run.UpdatedCount, run.FailedCount, run.TotalCount)
	fmt.Printf("  duration: %s\n", run.Duration.Round(time.Millisecond))
}
