// Command expense-import loads a CSV file of expenses into the configured
// store as one batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	file := flag.String("file", "", "CSV file to import, - for stdin")
	date := flag.String("date", "", "date shared by every row (YYYY-MM-DD, default today)")
	flag.Parse()

	cfg, logger := cli.Bootstrap(log.ComponentImport)
	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	n, err := run(ctx, cfg, *file, *date, logger)
	if err != nil {
		logger.Error("Import failed", log.FieldError, err, "file", *file)
		os.Exit(1)
	}
	fmt.Printf("Imported %d expenses\n", n)
}

func run(ctx context.Context, cfg *config.Config, file, date string, logger *log.Logger) (int, error) {
	if file == "" {
		return 0, fmt.Errorf("-file is required")
	}
	var batchDate time.Time
	if date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			return 0, err
		}
		batchDate = d
	}

	var in io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return 0, fmt.Errorf("open %s: %w", file, err)
		}
		defer f.Close()
		in = f
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return 0, err
	}
	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected, imported records will not outlive this process")
	}
	be, err := backend.NewFactory(logger).Open(ctx, bcfg)
	if err != nil {
		return 0, err
	}
	defer be.Close()

	svc := services.NewExpenseService(be.Store,
		services.WithPublisher(be.Publisher()),
		services.WithMaxImportRows(cfg.MaxImportRows),
		services.WithLogger(logger),
	)
	return svc.ImportCSV(ctx, in, batchDate)
}
