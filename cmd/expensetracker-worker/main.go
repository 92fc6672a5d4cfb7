package main

import (
	"os"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/storage"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting expensetracker-worker")

	if !cfg.SheetsEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the sync worker")
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := gsheet.New(ctx, sheetsConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	var events worker.EventSource
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
	} else {
		logger.Info("AMQP disabled, relying on the periodic pending pass", "interval", cfg.SyncInterval)
	}

	w := worker.NewSyncWorker(repo, mirror, cfg.SyncBatchSize, logger)
	if err := w.Run(ctx, events, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func sheetsConfig(cfg *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}
}
