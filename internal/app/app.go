// Package app wires configuration to adapters, usecases, and lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"CardForge/internal/config"
	"CardForge/internal/httpapi"
	"CardForge/internal/infrastructure/scheduler"
	"CardForge/internal/infrastructure/social"
	"CardForge/internal/infrastructure/storage"
	"CardForge/internal/ingest"
	"CardForge/internal/ports"
	"CardForge/internal/render"
	"CardForge/internal/usecase"
)

// Application owns every long-lived component and their shutdown order.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	loop    *usecase.Loop
	sweep   ports.Scheduler
	sweepFn func(time.Time)
	server  *http.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	sources := make([]ports.ArticleSource, 0, len(cfg.Sources))
	for _, sourceCfg := range cfg.Sources {
		ic := sourceCfg.Ingest()
		details := buildDetailFetcher(ic, cfg.Browser, logger)
		sources = append(sources, ingest.NewHTTPSource(ic, details, logger))
	}
	photos := ingest.NewHTTPPhotoFetcher(30*time.Second, "")

	ledger := storage.NewLedgerStore(db)
	templates := storage.NewTemplateStore(db)
	mappings := storage.NewMappingStore(db)
	accounts := storage.NewAccountStore(db)
	cards := storage.NewCardStore(db)
	posts := storage.NewPostStore(db)
	settings := storage.NewSettingsStore(db)
	runs := storage.NewRunStore(db)

	autopilot := usecase.NewAutopilot(
		sources,
		photos,
		renderer,
		ledger,
		templates,
		mappings,
		cards,
		settings,
		runs,
		cfg.Autopilot.ArticleDelay.Std(),
		logger,
	)
	publisher := usecase.NewPublisher(
		cards,
		posts,
		accounts,
		social.NewGraphClient(""),
		cfg.Sweep.BatchSize,
		logger,
	)
	loop := usecase.NewLoop(autopilot, settings, cfg.Autopilot.Tick.Std(), logger)

	api := httpapi.NewServer(
		autopilot,
		loop,
		publisher,
		cfg.HTTP.CronSecret,
		cfg.HTTP.DefaultUser,
		logger,
	)

	app := &Application{
		cfg:    cfg,
		logger: logger.With("component", "app"),
		loop:   loop,
		sweep:  scheduler.NewTickerScheduler(cfg.Sweep.Interval.Std()),
		server: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	app.sweepFn = func(now time.Time) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := publisher.SweepDue(ctx, now); err != nil {
			app.logger.Error("sweep failed", "error", err)
		}
	}
	return app, nil
}

func buildDetailFetcher(ic ingest.Config, browser config.BrowserConfig, logger *slog.Logger) ports.DetailFetcher {
	primary := ingest.NewHTTPDetailFetcher(nil, ic.UserAgent)
	if !browser.Enabled {
		return primary
	}
	fallback := ingest.NewBrowserFetcher(browser.Timeout.Std(), browser.Settle.Std(), logger)
	return ingest.NewFallbackFetcher(primary, fallback, logger)
}

// Run starts the sweep driver and the HTTP server, then blocks until the
// context is canceled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sweep.Start(ctx, a.sweepFn); err != nil {
		return fmt.Errorf("start sweep: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	a.loop.StopAll()
	if err := a.sweep.Stop(context.Background()); err != nil {
		a.logger.Warn("sweep stop failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
