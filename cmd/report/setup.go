package main

import (
	"fmt"
	"log/slog"

	"github.com/dailyreport/internal/app"
	"github.com/dailyreport/internal/config"
	"github.com/spf13/cobra"
)

type environment struct {
	cfg    *config.Config
	report config.Report
	logger *slog.Logger
}

// loadEnvironment reads settings from the environment and the report
// definition named by --config or REPORT_CONFIG.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := app.NewLogger(cfg)

	path := cfg.ReportConfig
	if cmd.Flags().Changed("config") {
		path, err = cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("parse --config: %w", err)
		}
	}

	rep, err := config.LoadReport(path)
	if err != nil {
		return nil, fmt.Errorf("loading report definition: %w", err)
	}
	logger.Debug("report definition loaded", "path", path, "report", rep.Name, "recipients", len(rep.Recipients))

	return &environment{cfg: cfg, report: rep, logger: logger}, nil
}
