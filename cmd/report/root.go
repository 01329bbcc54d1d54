package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Report queries a database, summarizes the result and emails it",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "report definition file (default $REPORT_CONFIG or report.yml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
