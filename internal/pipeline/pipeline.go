// Package pipeline wires fetch, aggregation, rendering and delivery into
// the daily report job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dailyreport/internal/aggregate"
	"github.com/dailyreport/internal/brand"
	"github.com/dailyreport/internal/config"
	"github.com/dailyreport/internal/fetch"
	"github.com/dailyreport/internal/mailer"
	"github.com/dailyreport/internal/report"
	"github.com/dailyreport/internal/table"
)

// NoDataMessage is logged when the query returns no rows.
const NoDataMessage = "No data returned from query."

const previewRows = 5

type Fetcher interface {
	Fetch(ctx context.Context, queryPath string) (table.Table, error)
}

type Sender interface {
	// Check validates delivery settings without network I/O.
	Check(to []string) error
	Send(ctx context.Context, msg mailer.Message) error
}

// Result carries the tables and bodies computed by one run. Tables are
// populated even when delivery fails.
type Result struct {
	NoData   bool
	Raw      table.Table
	Summary  table.Table
	Rendered report.Rendered
	Sent     bool
}

type Pipeline struct {
	report   config.Report
	fetcher  Fetcher
	sender   Sender
	renderer *report.Renderer
	logger   *slog.Logger
	out      io.Writer
}

func New(rep config.Report, fetcher Fetcher, sender Sender, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		report:   rep,
		fetcher:  fetcher,
		sender:   sender,
		renderer: report.NewRenderer(),
		logger:   logger,
		out:      os.Stdout,
	}
}

// WithRenderer replaces the default renderer, e.g. to pin the report date.
func (p *Pipeline) WithRenderer(r *report.Renderer) *Pipeline {
	p.renderer = r
	return p
}

// WithOutput sets where the preview of fetched rows is printed.
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.out = w
	return p
}

// Report returns the report definition the pipeline runs.
func (p *Pipeline) Report() config.Report {
	return p.report
}

// Build fetches and aggregates the data and renders both bodies with the
// given logo source. An empty result is reported through Result.NoData.
func (p *Pipeline) Build(ctx context.Context, logoSrc string) (Result, error) {
	p.logger.Info("loading query", "path", p.report.QueryFile)

	raw, err := p.fetcher.Fetch(ctx, p.report.QueryFile)
	if err != nil {
		return Result{}, err
	}
	if raw.Empty() {
		p.logger.Info(NoDataMessage)
		return Result{NoData: true, Raw: raw}, nil
	}

	p.logger.Info("rows retrieved", "rows", raw.NumRows(), "columns", len(raw.Columns))
	if p.out != nil {
		fmt.Fprintf(p.out, "%s\n\nTotal rows retrieved: %d\n", report.PlainTable(raw.Head(previewRows)), raw.NumRows())
	}

	res := Result{Raw: raw}
	if p.report.ShouldAggregate() {
		res.Summary, err = aggregate.SumRow(raw, p.report.KeyColumn)
		if err != nil {
			return res, err
		}
		p.logger.Debug("summary computed", "columns", res.Summary.Headers())
	} else {
		res.Summary = raw.Clone()
	}

	in := report.Input{
		Summary:      res.Summary,
		Subject:      p.report.Subject,
		FromName:     p.report.FromName,
		Organization: p.report.Organization,
		SummaryTitle: p.report.SummaryTitle,
		RawTitle:     p.report.RawTitle,
		LogoSrc:      logoSrc,
	}
	if p.report.IncludeRaw {
		in.Raw = &res.Raw
	}

	res.Rendered, err = p.renderer.Render(in)
	if err != nil {
		return res, fmt.Errorf("render report: %w", err)
	}
	return res, nil
}

type RunOptions struct {
	// DryRun renders the report but does not send it.
	DryRun bool
}

// Run executes the whole job: fetch, aggregate, render and send. The mail
// is submitted at most once. Delivery settings are checked before the
// database is touched unless this is a dry run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	if !opts.DryRun {
		if err := p.sender.Check(p.report.Recipients); err != nil {
			return Result{}, err
		}
	}

	logo := brand.LoadLogo(p.report.LogoFile)
	if logo == nil && p.report.LogoFile != "" {
		p.logger.Warn("logo unavailable, sending without image", "path", p.report.LogoFile)
	}

	logoSrc := ""
	if logo != nil {
		logoSrc = "cid:" + brand.ContentID
	}

	res, err := p.Build(ctx, logoSrc)
	if err != nil || res.NoData {
		return res, err
	}

	if opts.DryRun {
		p.logger.Info("dry run, email not sent", "recipients", len(p.report.Recipients))
		return res, nil
	}

	msg := mailer.Message{
		To:      p.report.Recipients,
		Subject: res.Rendered.Subject,
		Text:    res.Rendered.Text,
		HTML:    res.Rendered.HTML,
	}
	if logo != nil {
		msg.Inline = &mailer.Inline{
			ContentID:   brand.ContentID,
			ContentType: logo.ContentType,
			Filename:    logo.Filename,
			Data:        logo.Data,
		}
	}

	p.logger.Info("sending email", "recipients", len(msg.To))
	if err := p.sender.Send(ctx, msg); err != nil {
		return res, err
	}
	res.Sent = true
	return res, nil
}

// Exit codes returned by the report binary.
const (
	ExitOK         = 0
	ExitUnexpected = 1
	ExitConfig     = 2
	ExitFetch      = 3
	ExitInputShape = 4
	ExitDelivery   = 5
)

// ExitCode maps an error from Run to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr     *config.Error
		credErr    *mailer.MissingCredentialsError
		fetchErr   *fetch.Error
		shapeErr   *aggregate.InputShapeError
		deliverErr *mailer.DeliveryError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &credErr), errors.Is(err, mailer.ErrNoRecipients):
		return ExitConfig
	case errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &shapeErr):
		return ExitInputShape
	case errors.As(err, &deliverErr):
		return ExitDelivery
	default:
		return ExitUnexpected
	}
}
