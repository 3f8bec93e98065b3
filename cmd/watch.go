package cmd

import (
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch anomaly notifications on the notification channel",
	Run:   cmdHandler.Watch.Watch,
}

func init() {
	RootCmd.AddCommand(watchCmd)
}
