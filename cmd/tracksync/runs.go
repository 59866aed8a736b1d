package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/store"
	"tracksync/internal/utils"
)

func newRunsCmd() *cobra.Command {
	var flowType string
	var status string
	var since string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		Long: `List ledger entries for recent sync flows, newest first.

A run still marked 'started' after the configured threshold is shown as
interrupted; the stored entry is never rewritten.

Examples:
  tracksync runs
  tracksync runs --flow project_tasks --status failed
  tracksync runs show 4f7c2d1a-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			filter := store.RunFilter{
				FlowType: flowType,
				Status:   status,
				Limit:    limit,
			}
			if sinceDate, err := utils.ParseDateFlag(since); err != nil {
				return err
			} else if sinceDate != nil {
				filter.Since = *sinceDate
			}

			runs, err := app.syncer.ListRecentRuns(filter)
			if err != nil {
				return err
			}
			if asJSON {
				return utils.OutputJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Println("No sync runs recorded.")
				return nil
			}

			fmt.Printf("%-36s %-14s %-12s %-20s %s\n", "ID", "FLOW", "STATUS", "STARTED", "C/U/F/T")
			for i := range runs {
				run := &runs[i]
				fmt.Printf("%-36s %-14s %-12s %-20s %d/%d/%d/%d\n",
					run.ID, run.FlowType, app.ledger.EffectiveStatus(run),
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.CreatedCount, run.UpdatedCount, run.FailedCount, run.TotalCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flowType, "flow", "", "filter by flow type (all_projects, project_tasks, user_tasks, user_import)")
	cmd.Flags().StringVar(&status, "status", "", "filter by stored status (started, completed, failed)")
	cmd.Flags().StringVar(&since, "since", "", "only runs started on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one sync run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			run, display, err := app.syncer.GetRunStatus(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Run:      %s\n", run.ID)
			fmt.Printf("Flow:     %s\n", run.FlowType)
			if run.TargetName != "" {
				fmt.Printf("Target:   %s (%s)\n", run.TargetName, run.TargetID)
			}
			fmt.Printf("Status:   %s\n", display)
			fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
			if run.CompletedAt != nil {
				fmt.Printf("Finished: %s (%s)\n", run.CompletedAt.Format(time.RFC3339),
					run.Duration.Round(time.Millisecond))
			}
			fmt.Printf("Counts:   %d created, %d updated, %d failed of %d total\n",
				run.CreatedCount, run.UpdatedCount, run.FailedCount, run.TotalCount)
			if run.ErrorMessage != "" {
				fmt.Printf("Error:    %s\n", run.ErrorMessage)
			}
			return nil
		},
	}
}
