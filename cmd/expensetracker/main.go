package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	be, err := backend.NewFactory(logger).Open(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	summaries := cache.NewLRU[report.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	svc := services.NewExpenseService(be.Store,
		services.WithPublisher(be.Publisher()),
		services.WithSummaryCache(summaries),
		services.WithMaxImportRows(cfg.MaxImportRows),
		services.WithLogger(logger.WithComponent(log.ComponentExpense)),
	)

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithReadiness(be.Ping),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensetracker server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", be.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cache.NewJanitor(summaries).Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
