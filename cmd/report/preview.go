package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dailyreport/internal/brand"
	"github.com/dailyreport/internal/fetch"
	"github.com/dailyreport/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	formatHTML = "html"
	formatText = "text"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the report body without sending it",
		RunE:  runPreview,
	}
	cmd.Flags().String("out", "", "write the body to this file instead of stdout")
	cmd.Flags().String("format", formatHTML, "body to render (html|text)")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("parse --format: %w", err)
	}
	format = strings.ToLower(format)
	if format != formatHTML && format != formatText {
		return fmt.Errorf("unsupported format %q (want html or text)", format)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("parse --out: %w", err)
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	fetcher := fetch.New(env.cfg.Database, env.logger)
	p := pipeline.New(env.report, fetcher, nil, env.logger).WithOutput(cmd.ErrOrStderr())

	res, err := p.Build(cmd.Context(), inlineLogo(brand.LoadLogo(env.report.LogoFile)))
	if err != nil {
		return err
	}
	if res.NoData {
		fmt.Fprintln(cmd.OutOrStdout(), pipeline.NoDataMessage)
		return nil
	}

	body := res.Rendered.HTML
	if format == formatText {
		body = res.Rendered.Text
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	if outPath != "" {
		env.logger.Info("preview written", "path", outPath, "format", format)
	}
	return nil
}

// inlineLogo embeds the logo as a data URI so a saved preview is
// self-contained.
func inlineLogo(logo *brand.Logo) string {
	if logo == nil {
		return ""
	}
	return "data:" + logo.ContentType + ";base64," + base64.StdEncoding.EncodeToString(logo.Data)
}
