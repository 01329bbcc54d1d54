package main

import (
	"fmt"

	"github.com/dailyreport/internal/fetch"
	"github.com/dailyreport/internal/mailer"
	"github.com/dailyreport/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, summarize and email the report",
		RunE:  runReport,
	}
	cmd.Flags().Bool("dry-run", false, "render the report without sending it")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("parse --dry-run: %w", err)
	}

	fetcher := fetch.New(env.cfg.Database, env.logger)
	m := mailer.New(mailer.NewConfig(env.cfg.Email, env.report.FromName), env.logger)
	p := pipeline.New(env.report, fetcher, m, env.logger).WithOutput(cmd.OutOrStdout())

	res, err := p.Run(cmd.Context(), pipeline.RunOptions{DryRun: dryRun})
	if err != nil {
		return err
	}

	switch {
	case res.NoData:
		fmt.Fprintln(cmd.OutOrStdout(), pipeline.NoDataMessage)
	case res.Sent:
		fmt.Fprintln(cmd.OutOrStdout(), "Email sent successfully.")
	}
	return nil
}
