package cmd

import (
	"github.com/anomstream/anomalyd/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveDetectorCmd represents the serve detector command
var serveDetectorCmd = &cobra.Command{
	Use:   "detector",
	Short: "Serve the anomaly detector instance",
	Run:   server.RunServeDetector(c),
}

func init() {
	serveCmd.AddCommand(serveDetectorCmd)
}
