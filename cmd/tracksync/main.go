package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tracksync/internal/config"
	"tracksync/internal/remote"
	"tracksync/internal/utils"
)

func main() {
	// Optional .env for development setups; ignored when absent
	_ = godotenv.Load()

	var verbose bool
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tracksync",
		Short: "Pull projects, tasks, and users from a remote issue tracker",
		Long: `tracksync keeps a local mirror of a remote issue tracker.

Projects, tasks, and users are pulled into a local SQLite store and
reconciled by their remote identifiers, so repeated syncs update rows in
place. Every sync flow is booked into a run ledger.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configPath != "" {
				config.SetCustomConfigPath(configPath)
			}
			utils.SetVerboseMode(verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file or directory")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newStatusesCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newCredentialsCmd())
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError surfaces suggestions carried by our error types
func printError(err error) {
	// Network-level failures get a connectivity hint
	var rerr *remote.Error
	if errors.As(err, &rerr) && rerr.IsTransient() && rerr.StatusCode == 0 {
		err = utils.ErrTrackerOffline(rerr.Message)
	}

	var suggestErr *utils.ErrorWithSuggestion
	if errors.As(err, &suggestErr) && suggestErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s\n", suggestErr.Err, suggestErr.Suggestion)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
