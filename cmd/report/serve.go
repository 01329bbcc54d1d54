package main

import (
	"fmt"

	"github.com/dailyreport/internal/app"
	"github.com/dailyreport/internal/fetch"
	"github.com/dailyreport/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local browser preview of the report",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("parse --addr: %w", err)
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	fetcher := fetch.New(env.cfg.Database, env.logger)
	p := pipeline.New(env.report, fetcher, nil, env.logger).WithOutput(nil)

	return app.New(env.cfg, p, fetcher, env.logger, addr).Start(cmd.Context())
}
