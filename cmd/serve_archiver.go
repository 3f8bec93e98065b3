package cmd

import (
	"github.com/anomstream/anomalyd/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveArchiverCmd represents the serve archiver command
var serveArchiverCmd = &cobra.Command{
	Use:   "archiver",
	Short: "Serve the raw transaction archiver instance",
	Run:   server.RunServeArchiver(c),
}

func init() {
	serveCmd.AddCommand(serveArchiverCmd)
}
