package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dailyreport/internal/brand"
	"github.com/dailyreport/internal/config"
	"github.com/dailyreport/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// App serves a browser preview of the report. It never sends mail.
type App struct {
	config   *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	db       pinger
	logo     *brand.Logo
	addr     string
}

func New(cfg *config.Config, p *pipeline.Pipeline, db pinger, logger *slog.Logger, addr string) *App {
	return &App{
		config:   cfg,
		logger:   logger,
		pipeline: p,
		db:       db,
		logo:     brand.LoadLogo(p.Report().LogoFile),
		addr:     addr,
	}
}

func (app *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         app.addr,
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting preview server", "addr", srv.Addr, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down preview server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped preview server")
	return nil
}

// NewLogger builds the process logger: debug in development, info
// otherwise, with LOG_LEVEL taking precedence when set.
func NewLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo

	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	if cfg.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err == nil {
			logLevel = lvl
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger
}
