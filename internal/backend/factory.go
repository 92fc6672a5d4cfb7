package backend

import (
	"context"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

// Factory opens backends and logs what it opened.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// Open creates the store for cfg.Type. A broker that cannot be reached is
// logged and skipped: records stay pending and the worker catches up.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{Type: cfg.Type}
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		b.Store, b.Repository = repo, repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		b.Store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.LogError(ctx, "Failed to initialize AMQP client, continuing without sync", err, log.ComponentAMQP, log.OpStartup)
		} else {
			b.AMQP = client
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	return b, nil
}
