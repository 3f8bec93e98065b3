package cmd

import (
	"github.com/spf13/cobra"
)

// produceCmd represents the produce command
var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Produce synthetic transaction events onto the ingest stream",
	Run:   cmdHandler.Producer.Produce,
}

func init() {
	RootCmd.AddCommand(produceCmd)
}
