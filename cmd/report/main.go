package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailyreport/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
// Command output and the final failure log both go to out.
func execute(ctx context.Context, args []string, out io.Writer) int {
	slog.SetDefault(slog.New(slog.NewTextHandler(out, nil)))

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		slog.Error("report failed", "error", err)
	}
	return pipeline.ExitCode(err)
}
