package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Runs every extraction now and then every SYNC_INTERVAL_MINUTES until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		defer app.Stop()
		return app.NewSyncService().Run(cmd.Context())
	},
}
