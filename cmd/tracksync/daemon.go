package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tracksync/internal/utils"
)

func newDaemonCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the periodic sync jobs in the foreground",
		Long: `Run the scheduler until interrupted.

Four jobs tick on their configured intervals: user import, project
sync, per-project task sync, and the token refresh sweep. Jobs that act
on tracker data run as the oldest active admin user; while no such user
exists they are skipped, not failed.

A tick that arrives while the previous run of the same job is still
executing is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp()
			if err != nil {
				return err
			}
			defer app.Close()

			sc, err := app.newScheduler()
			if err != nil {
				return err
			}
			if err := sc.Start(); err != nil {
				return err
			}

			fmt.Println("tracksync daemon started, press Ctrl+C to stop")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			utils.Infof("received %s, shutting down", sig)

			sc.Shutdown(shutdownTimeout)
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second,
		"how long to wait for in-flight jobs on shutdown")
	return cmd
}
