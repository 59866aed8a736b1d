package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/cache"
	"tracksync/internal/syncer"
)

func newStatusCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the tracker connection and synced projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			userID, err := app.actingUser(asUser)
			if err != nil {
				// Status must work before any user exists
				userID = ""
			}

			if userID != "" {
				status, err := app.syncer.GetConnectionStatus(userID, app.config.Provider.Name)
				if err != nil {
					return err
				}
				printConnectionStatus(status, app.config.Provider.Name)
			} else {
				fmt.Println("No local users yet. Run 'tracksync import users' after connecting.")
			}

			projects, err := loadProjectSummaries(app)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Println("\nNo projects synced yet. Run 'tracksync sync projects'.")
				return nil
			}

			fmt.Printf("\n%-10s %-30s %s\n", "KEY", "NAME", "TASKS")
			for _, p := range projects {
				fmt.Printf("%-10s %-30s %d\n", p.Key, p.Name, p.TaskCount)
			}

			stats, err := app.ledger.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("\nSync runs: %d total, %d completed, %d failed, %d interrupted\n",
				stats.Total, stats.Completed, stats.Failed, stats.Interrupted)
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to report on (default: first active admin)")
	return cmd
}

func newStatusesCmd() *cobra.Command {
	var asUser string

	cmd := &cobra.Command{
		Use:   "statuses <project>",
		Short: "Show a project's remote status vocabulary and its local mapping",
		Long: `Fetch the workflow statuses of one project from the tracker and show
the local status each of them reconciles to.

Statuses the mapping does not recognize fall back to 'todo'; if tasks
pile up there after a sync, this shows which remote statuses caused it.`,
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

			mappings, err := app.syncer.ProjectStatuses(userID, args[0])
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Println("The tracker reported no statuses for this project.")
				return nil
			}

			fmt.Printf("%-25s %-15s %s\n", "REMOTE", "CATEGORY", "LOCAL")
			for _, m := range mappings {
				fmt.Printf("%-25s %-15s %s\n", m.Remote.Name, m.Remote.Category, m.Local)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asUser, "as", "", "local user id to act as (default: first active admin)")
	return cmd
}

func printConnectionStatus(status *syncer.ConnectionStatus, provider string) {
	if !status.Connected {
		fmt.Printf("Not connected to %s.\n", provider)
		return
	}

	fmt.Printf("Connected to %s (token expires %s)\n", provider, status.ExpiresAt.Format(time.RFC3339))
	if status.LastProjectSync != nil {
		fmt.Printf("Projects last synced %s\n", status.LastProjectSync.Format(time.RFC3339))
	} else {
		fmt.Println("Projects never synced")
	}
	if status.LastTaskSync != nil {
		fmt.Printf("Tasks last synced %s\n", status.LastTaskSync.Format(time.RFC3339))
	}
}

// loadProjectSummaries serves the cached snapshot when it is fresh and
// rebuilds from the store otherwise.
func loadProjectSummaries(app *App) ([]cache.ProjectSummary, error) {
	summaries, err := cache.LoadProjectSummaries(cache.DefaultMaxAge)
	if err == nil {
		return summaries, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return nil, err
	}

	projects, err := app.store.ListActiveProjects()
	if err != nil {
		return nil, err
	}
	summaries = make([]cache.ProjectSummary, 0, len(projects))
	for i := range projects {
		count, err := app.store.CountTasksByProject(projects[i].ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, cache.ProjectSummary{
			ExternalID: projects[i].ExternalID,
			Key:        projects[i].Key,
			Name:       projects[i].Name,
			TaskCount:  count,
			SyncedAt:   projects[i].UpdatedAt,
		})
	}
	return summaries, nil
}
